package suite

import (
	"errors"
	"testing"

	"shadowrelay/domain/protoerr"
)

// TestUnsupportedMethodsFailFast covers the CIPHER_INIT path (spec §7) for
// the six catalog methods this build has no implementation for.
func TestUnsupportedMethodsFailFast(t *testing.T) {
	for _, name := range []string{
		"camellia-128-cfb",
		"camellia-192-cfb",
		"camellia-256-cfb",
		"idea-cfb",
		"rc2-cfb",
		"seed-cfb",
	} {
		_, err := New(name, "pw")
		if !errors.Is(err, protoerr.ErrCipherInit) {
			t.Fatalf("New(%q) error = %v, want wrapping ErrCipherInit", name, err)
		}
	}
}

func TestUnknownMethodFailsFast(t *testing.T) {
	_, err := New("not-a-real-method", "pw")
	if !errors.Is(err, protoerr.ErrCipherInit) {
		t.Fatalf("New(unknown) error = %v, want wrapping ErrCipherInit", err)
	}
}
