// Package suite implements the cipher abstraction (spec §4.A, component A):
// uniform encrypt/decrypt contexts across the fixed method catalog, built
// on top of the KDF in infrastructure/cryptography/kdf.
//
// Grounded on the teacher's only crypto-adjacent dependency
// (golang.org/x/crypto, per NLipatov-TunGo's go.mod) for every real
// algorithm below; the table cipher and the method dispatch shape are new
// since TunGo's own session type (infrastructure/cryptography/chacha20)
// is AEAD-only and has no legacy-stream-cipher catalog to borrow from.
package suite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"

	appcipher "shadowrelay/application/cipher"
	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/cryptography/kdf"
)

// defaultSuite is the immutable Suite: one derived key, one method,
// reused by every connection (spec §5 "K ... is set once before the loop
// starts and never mutated").
type defaultSuite struct {
	method   domaincipher.Method
	key      []byte
	password string
}

// New derives K from password for methodName and returns an immutable
// Suite. It fails fast (CIPHER_INIT, spec §7) for unknown methods and for
// the methods this module cannot wire to any library (see unsupported.go).
func New(methodName, password string) (appcipher.Suite, error) {
	method, err := domaincipher.Parse(methodName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protoerr.ErrCipherInit, err)
	}
	if err := checkSupported(method); err != nil {
		return nil, err
	}

	var key []byte
	if method.KeyLen() > 0 {
		key = kdf.BytesToKey(password, method.KeyLen())
	}
	return &defaultSuite{method: method, key: key, password: password}, nil
}

func (s *defaultSuite) Method() domaincipher.Method { return s.method }

func (s *defaultSuite) Key() []byte { return s.key }

func (s *defaultSuite) NewEncryptContext() (appcipher.EncryptContext, error) {
	iv := make([]byte, s.method.IVLen())
	if len(iv) > 0 {
		if _, err := rand.Read(iv); err != nil {
			return nil, fmt.Errorf("%w: generating IV: %v", protoerr.ErrCipherInit, err)
		}
	}
	ctx, err := s.newContext(iv, true)
	if err != nil {
		return nil, err
	}
	return ctx.(streamLike), nil
}

func (s *defaultSuite) NewDecryptContext() (appcipher.DecryptContext, error) {
	ctx, err := s.newContext(nil, false)
	if err != nil {
		return nil, err
	}
	return ctx.(*lazyDecryptContext), nil
}

// newContext builds the concrete per-method context. When iv is nil the
// context is a decrypt-side context awaiting SetIV (spec §4.F S0: "the
// decrypt context is initialized with those bytes").
func (s *defaultSuite) newContext(iv []byte, isEncrypt bool) (any, error) {
	switch s.method.Class() {
	case domaincipher.ClassTable:
		t := newTableCipher([]byte(s.password))
		if isEncrypt {
			return &tableContext{table: t, encrypt: true}, nil
		}
		return &lazyDecryptContext{build: func(_ []byte) (streamLike, error) {
			return &tableContext{table: t, encrypt: false}, nil
		}}, nil

	case domaincipher.ClassCounter:
		if isEncrypt {
			return newCounterContext(s.method, s.key, iv)
		}
		return &lazyDecryptContext{build: func(wireIV []byte) (streamLike, error) {
			return newCounterContext(s.method, s.key, wireIV)
		}}, nil

	case domaincipher.ClassStreamCFB:
		if isEncrypt {
			return newStreamCFBEncryptContext(s.method, s.key, iv)
		}
		return &lazyDecryptContext{build: func(wireIV []byte) (streamLike, error) {
			return newStreamCFBDecryptContext(s.method, s.key, wireIV)
		}}, nil

	default:
		return nil, fmt.Errorf("%w: unhandled method class", protoerr.ErrCipherInit)
	}
}

// streamLike is the common shape every concrete context satisfies; both
// the public EncryptContext and DecryptContext are thin views over it.
type streamLike interface {
	IV() []byte
	Update(in []byte) ([]byte, error)
}

// lazyDecryptContext defers building the concrete cipher until SetIV
// supplies the wire IV (spec §4.F: "the decrypt context is initialized
// with those bytes [read from the wire]").
type lazyDecryptContext struct {
	build func(iv []byte) (streamLike, error)
	inner streamLike
	iv    []byte
}

func (d *lazyDecryptContext) SetIV(iv []byte) error {
	inner, err := d.build(iv)
	if err != nil {
		return err
	}
	d.inner = inner
	d.iv = iv
	return nil
}

func (d *lazyDecryptContext) IV() []byte { return d.iv }

func (d *lazyDecryptContext) Update(in []byte) ([]byte, error) {
	if d.inner == nil {
		return nil, fmt.Errorf("%w: Update called before SetIV", protoerr.ErrCipherFail)
	}
	return d.inner.Update(in)
}

// blockFor builds a cipher.Block for the stream/CFB method family.
func blockFor(method domaincipher.Method, key []byte) (cipher.Block, error) {
	switch method {
	case domaincipher.AES128CFB, domaincipher.AES192CFB, domaincipher.AES256CFB:
		return aes.NewCipher(key)
	case domaincipher.DESCFB:
		return des.NewCipher(key)
	case domaincipher.BlowfishCFB:
		return blowfish.NewCipher(key)
	case domaincipher.CAST5CFB:
		return cast5.NewCipher(key)
	default:
		return nil, fmt.Errorf("%w: no CFB block implementation for %s", protoerr.ErrCipherInit, method)
	}
}
