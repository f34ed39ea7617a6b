// Package cipher is the cipher-abstraction port (spec §4.A, component A).
package cipher

import domaincipher "shadowrelay/domain/cipher"

// EncryptContext is a per-direction, per-connection encryption state: one
// IV and any running counter/rekey material the method needs.
type EncryptContext interface {
	// IV returns the context's IV. Zero-length for table/rc4.
	IV() []byte
	// Update encrypts in, returning ciphertext of the same length.
	Update(in []byte) ([]byte, error)
}

// DecryptContext is the decrypt-side mirror of EncryptContext. SetIV must
// be called exactly once, with the bytes read off the wire, before the
// first Update call.
type DecryptContext interface {
	// SetIV initializes the context with the IV read from the peer.
	SetIV(iv []byte) error
	// IV returns the IV set via SetIV (nil before it is called).
	IV() []byte
	// Update decrypts in, returning plaintext of the same length.
	Update(in []byte) ([]byte, error)
}

// Suite is an immutable, process-wide cryptographic configuration: a
// derived key and a method. It is safe for concurrent use — Suite itself
// never holds per-connection mutable state, only NewEncryptContext and
// NewDecryptContext results do (spec §5 "K ... is set once ... and never
// mutated").
type Suite interface {
	Method() domaincipher.Method
	// NewEncryptContext generates a fresh random IV and returns a ready
	// encrypt-side context (spec §3 invariant 1).
	NewEncryptContext() (EncryptContext, error)
	// NewDecryptContext returns a decrypt-side context awaiting SetIV.
	NewDecryptContext() (DecryptContext, error)
	// Key returns the derived key K, the HMAC key material chunkauth
	// mixes with each session's IV (spec §4.C: "key IV ‖ K"). Empty for
	// the table method, which has no derived key.
	Key() []byte
}
