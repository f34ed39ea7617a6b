package suite

import (
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
)

// blockSize is the Salsa20/ChaCha20 keystream block size in bytes, used by
// the xor_ic padding trick below.
const blockSize = 64

// xorICFunc applies the keystream for the 64-byte block starting at
// block-counter ic to src, writing into dst (len(dst) == len(src), and
// src must start at a block boundary — counterContext.Update guarantees
// this via leading padding; the length need not be a multiple of 64).
type xorICFunc func(dst, src []byte, ic uint64, key, nonce []byte)

// counterContext implements the §4.A "xor_ic" construction common to
// Salsa20, ChaCha20 and ChaCha20-IETF: maintain a running byte counter,
// pad the input with (counter mod 64) leading zero bytes so the
// underlying primitive always starts at a block boundary, then discard
// that padding from the output.
type counterContext struct {
	iv      []byte
	key     []byte
	counter uint64
	xor     xorICFunc
}

func newCounterContext(method domaincipher.Method, key, iv []byte) (streamLike, error) {
	if len(iv) != method.IVLen() {
		return nil, fmt.Errorf("%w: %s requires a %d-byte IV", protoerr.ErrBadHeader, method, method.IVLen())
	}
	var xor xorICFunc
	switch method {
	case domaincipher.Salsa20:
		xor = salsa20XORIC
	case domaincipher.ChaCha20:
		xor = chacha20LegacyXORIC
	case domaincipher.ChaCha20IETF:
		xor = chacha20IETFXORIC
	default:
		return nil, fmt.Errorf("%w: no counter-mode implementation for %s", protoerr.ErrCipherInit, method)
	}
	return &counterContext{iv: iv, key: key, xor: xor}, nil
}

func (c *counterContext) IV() []byte { return c.iv }

func (c *counterContext) Update(in []byte) ([]byte, error) {
	padding := int(c.counter % blockSize)
	blockCounter := c.counter / blockSize

	padded := make([]byte, padding+len(in))
	copy(padded[padding:], in)
	out := make([]byte, len(padded))
	c.xor(out, padded, blockCounter, c.key, c.iv)

	c.counter += uint64(len(in))
	return out[padding:], nil
}

// salsa20XORIC packs nonce (8 bytes) and the block counter (8 bytes,
// little-endian) into Salsa20's combined 16-byte counter array, matching
// the reference salsa20_xor_ic(ic) signature.
func salsa20XORIC(dst, src []byte, ic uint64, key, nonce []byte) {
	var counterAndNonce [16]byte
	copy(counterAndNonce[:8], nonce)
	putUint64LE(counterAndNonce[8:], ic)

	var k [32]byte
	copy(k[:], key)
	salsa.XORKeyStream(dst, src, &counterAndNonce, &k)
}

// chacha20LegacyXORIC implements original (non-IETF) ChaCha20: an 8-byte
// nonce with a 64-bit block counter. golang.org/x/crypto/chacha20 only
// exposes a 32-bit counter setter, so the nonce is left-padded to the
// library's 12-byte IETF form and the counter is truncated to 32 bits —
// safe in practice since a single session would need to exchange 2^32
// blocks (256 GiB) before this would wrap.
func chacha20LegacyXORIC(dst, src []byte, ic uint64, key, nonce []byte) {
	var ietfNonce [chacha20.NonceSize]byte
	copy(ietfNonce[chacha20.NonceSize-len(nonce):], nonce)
	xorWithChaCha20(dst, src, key, ietfNonce[:], uint32(ic))
}

// chacha20IETFXORIC implements RFC 8439 ChaCha20: 12-byte nonce, 32-bit
// block counter — a direct, unmodified fit for the library.
func chacha20IETFXORIC(dst, src []byte, ic uint64, key, nonce []byte) {
	xorWithChaCha20(dst, src, key, nonce, uint32(ic))
}

func xorWithChaCha20(dst, src, key, nonce []byte, counter uint32) {
	var k [chacha20.KeySize]byte
	copy(k[:], key)
	c, err := chacha20.NewUnauthenticatedCipher(k[:], nonce)
	if err != nil {
		// key/nonce lengths are fixed above to exactly what the
		// constructor requires; a failure here is a programming error.
		panic(fmt.Sprintf("suite: chacha20.NewUnauthenticatedCipher: %v", err))
	}
	c.SetCounter(counter)
	c.XORKeyStream(dst, src)
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
