// Package kdf implements the EVP_BytesToKey-style password-to-key
// derivation from spec §3/§4.A: iterate D_i = MD5(D_{i-1} ‖ password) with
// D_0 = ∅, concatenate D_1 ‖ D_2 ‖ ... until keyLen bytes accumulate.
//
// This is a protocol constant, not a design choice — wire compatibility
// with the client-side endpoint requires exactly this (weak, 1-iteration,
// unsalted MD5) construction, so no KDF library from the example pack
// (all of which implement HKDF/PBKDF2/scrypt/argon2) applies here.
package kdf

import "crypto/md5"

// BytesToKey derives a keyLen-byte key deterministically from password.
// It is pure and allocation-light; callers needing the IV length too
// should consult the cipher method's catalog entry instead of deriving it
// here — this function only ever produces key material.
func BytesToKey(password string, keyLen int) []byte {
	key := make([]byte, 0, keyLen+md5.Size)
	var prev []byte
	for len(key) < keyLen {
		h := md5.New()
		h.Write(prev)
		h.Write([]byte(password))
		sum := h.Sum(nil)
		key = append(key, sum...)
		prev = sum
	}
	return key[:keyLen]
}

// RC4MD5Key rekeys an RC4-MD5 session: true_key = MD5(K ‖ IV), per spec
// §4.A. The returned key is always 16 bytes (MD5 digest size).
func RC4MD5Key(k, iv []byte) []byte {
	h := md5.New()
	h.Write(k)
	h.Write(iv)
	return h.Sum(nil)
}
