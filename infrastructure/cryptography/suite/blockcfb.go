package suite

import (
	"crypto/cipher"
	"fmt"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
)

// cfbContext wraps a stdlib/x-crypto block cipher in CFB mode. Encrypt and
// decrypt sides use different cipher.Stream constructors but an identical
// shape, so one struct serves both (the direction is fixed at
// construction by which constructor newDirectedStreamCFBContext invokes).
type cfbContext struct {
	iv     []byte
	stream cipher.Stream
}

// newStreamCFBEncryptContext dispatches RC4/RC4-MD5 to their dedicated
// implementation and everything else in ClassStreamCFB to a block-cipher
// CFB encrypt stream.
func newStreamCFBEncryptContext(method domaincipher.Method, key, iv []byte) (streamLike, error) {
	return newDirectedStreamCFBContext(method, key, iv, true)
}

// newStreamCFBDecryptContext is the SetIV-side counterpart, building a CFB
// decrypt stream once the wire IV is known.
func newStreamCFBDecryptContext(method domaincipher.Method, key, iv []byte) (streamLike, error) {
	return newDirectedStreamCFBContext(method, key, iv, false)
}

// newDirectedStreamCFBContext is the shared implementation behind both
// directional constructors above.
func newDirectedStreamCFBContext(method domaincipher.Method, key, iv []byte, encrypt bool) (streamLike, error) {
	if method == domaincipher.RC4 || method == domaincipher.RC4MD5 {
		return newRC4Context(method, key, iv)
	}
	if len(iv) != method.IVLen() {
		return nil, fmt.Errorf("%w: %s requires a %d-byte IV", protoerr.ErrBadHeader, method, method.IVLen())
	}
	block, err := blockFor(method, key)
	if err != nil {
		return nil, err
	}
	var stream cipher.Stream
	if encrypt {
		stream = cipher.NewCFBEncrypter(block, iv)
	} else {
		stream = cipher.NewCFBDecrypter(block, iv)
	}
	return &cfbContext{iv: iv, stream: stream}, nil
}

func (c *cfbContext) IV() []byte { return c.iv }

func (c *cfbContext) Update(in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	c.stream.XORKeyStream(out, in)
	return out, nil
}
