package suite

import (
	"crypto/rc4"
	"fmt"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/cryptography/kdf"
)

// rc4Context wraps stdlib crypto/rc4. RC4 proper has no IV; RC4-MD5 rekeys
// true_key = MD5(K ‖ IV) once per session (spec §4.A) and does carry an IV.
type rc4Context struct {
	iv     []byte
	cipher *rc4.Cipher
}

func newRC4Context(method domaincipher.Method, key, iv []byte) (streamLike, error) {
	trueKey := key
	if method == domaincipher.RC4MD5 {
		if len(iv) != method.IVLen() {
			return nil, fmt.Errorf("%w: rc4-md5 requires a %d-byte IV", protoerr.ErrBadHeader, method.IVLen())
		}
		trueKey = kdf.RC4MD5Key(key, iv)
	}
	c, err := rc4.NewCipher(trueKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protoerr.ErrCipherInit, err)
	}
	return &rc4Context{iv: iv, cipher: c}, nil
}

func (c *rc4Context) IV() []byte { return c.iv }

func (c *rc4Context) Update(in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	c.cipher.XORKeyStream(out, in)
	return out, nil
}
