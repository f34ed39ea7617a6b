package suite

import (
	"bytes"
	"crypto/rand"
	"testing"
)

// allMethods lists every catalog name this package wires to a real
// implementation (i.e. excludes unsupported, see unsupported_test.go).
var allMethods = []string{
	"table",
	"rc4",
	"rc4-md5",
	"aes-128-cfb",
	"aes-192-cfb",
	"aes-256-cfb",
	"bf-cfb",
	"cast5-cfb",
	"des-cfb",
	"salsa20",
	"chacha20",
	"chacha20-ietf",
}

// TestRoundTrip is the crypto round-trip property (spec §8 property 1):
// for every method, decrypt(encrypt(m)) == m across varied message
// shapes, including empty updates and updates that straddle a 64-byte
// counter-mode block boundary.
func TestRoundTrip(t *testing.T) {
	messages := [][]byte{
		{},
		[]byte("a"),
		bytes.Repeat([]byte("x"), 63),
		bytes.Repeat([]byte("y"), 64),
		bytes.Repeat([]byte("z"), 65),
		bytes.Repeat([]byte("relay"), 500),
	}

	for _, name := range allMethods {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, "hunter2-correct-horse")
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}

			enc, err := s.NewEncryptContext()
			if err != nil {
				t.Fatalf("NewEncryptContext: %v", err)
			}
			dec, err := s.NewDecryptContext()
			if err != nil {
				t.Fatalf("NewDecryptContext: %v", err)
			}
			if err := dec.SetIV(enc.IV()); err != nil {
				t.Fatalf("SetIV: %v", err)
			}

			for _, m := range messages {
				ct, err := enc.Update(m)
				if err != nil {
					t.Fatalf("encrypt Update: %v", err)
				}
				if len(ct) != len(m) {
					t.Fatalf("ciphertext length = %d, want %d", len(ct), len(m))
				}
				pt, err := dec.Update(ct)
				if err != nil {
					t.Fatalf("decrypt Update: %v", err)
				}
				if !bytes.Equal(pt, m) {
					t.Fatalf("round trip mismatch: got %q, want %q", pt, m)
				}
			}
		})
	}
}

// TestIVRandomness is the IV-randomness property (spec §8 property 2):
// two independently generated encrypt contexts for the same method/
// password never reuse an IV (birthday-bound-safe sample size).
func TestIVRandomness(t *testing.T) {
	for _, name := range []string{"aes-256-cfb", "chacha20-ietf", "salsa20"} {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, "same password for both")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			seen := make(map[string]bool)
			for i := 0; i < 64; i++ {
				enc, err := s.NewEncryptContext()
				if err != nil {
					t.Fatalf("NewEncryptContext: %v", err)
				}
				iv := string(enc.IV())
				if seen[iv] {
					t.Fatalf("IV reused after %d contexts", i)
				}
				seen[iv] = true
			}
		})
	}
}

// TestTableAndRC4HaveNoIV covers invariant 2 (spec §3): methods with
// catalog IV length 0 must report a zero-length IV.
func TestTableAndRC4HaveNoIV(t *testing.T) {
	for _, name := range []string{"table", "rc4"} {
		s, err := New(name, "pw")
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		enc, err := s.NewEncryptContext()
		if err != nil {
			t.Fatalf("NewEncryptContext: %v", err)
		}
		if len(enc.IV()) != 0 {
			t.Fatalf("%s: IV length = %d, want 0", name, len(enc.IV()))
		}
	}
}

// TestDistinctPasswordsProduceDistinctCiphertext guards against a
// degenerate table/RC4 implementation that ignores the password.
func TestDistinctPasswordsProduceDistinctCiphertext(t *testing.T) {
	for _, name := range []string{"table", "rc4"} {
		s1, _ := New(name, "password-one")
		s2, _ := New(name, "password-two")
		enc1, err := s1.NewEncryptContext()
		if err != nil {
			t.Fatalf("NewEncryptContext: %v", err)
		}
		enc2, err := s2.NewEncryptContext()
		if err != nil {
			t.Fatalf("NewEncryptContext: %v", err)
		}
		msg := make([]byte, 256)
		_, _ = rand.Read(msg)
		c1, _ := enc1.Update(msg)
		c2, _ := enc2.Update(msg)
		if bytes.Equal(c1, c2) {
			t.Fatalf("%s: distinct passwords produced identical ciphertext", name)
		}
	}
}
