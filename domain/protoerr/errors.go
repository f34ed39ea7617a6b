// Package protoerr defines the error-kind taxonomy from spec §7 as Go
// sentinel errors, plus a classifier used by the logger and the ACL
// black-list policy to decide disposition without string-matching.
package protoerr

import "errors"

// Sentinel errors, one per disposition row in spec §7. Connection-level
// code wraps these with fmt.Errorf("...: %w", ErrX) for context; callers
// that need to branch on kind use errors.Is against these values.
var (
	// ErrBadHeader: malformed ATYP/length during header parse (§4.F).
	ErrBadHeader = errors.New("bad header")
	// ErrAuthFail: one-time or chunk HMAC verification failed (§4.C).
	ErrAuthFail = errors.New("authentication failed")
	// ErrReplay: decrypt IV was seen before (§4.B).
	ErrReplay = errors.New("replayed IV")
	// ErrCipherFail: the underlying cipher update/open failed (§4.A).
	ErrCipherFail = errors.New("cipher operation failed")
	// ErrResolveFail: DNS resolution returned nothing (§4.H).
	ErrResolveFail = errors.New("name resolution failed")
	// ErrTimeout: the idle timer fired (§4.G).
	ErrTimeout = errors.New("idle timeout")
	// ErrCipherInit: unknown method or KDF failure at startup (§4.A).
	ErrCipherInit = errors.New("cipher initialization failed")
)

// Kind is a disposition label used for logging and metrics; it never
// appears on the wire.
type Kind string

const (
	KindIOAgain     Kind = "IO_AGAIN"
	KindIOFatal     Kind = "IO_FATAL"
	KindBadHeader   Kind = "BAD_HEADER"
	KindAuthFail    Kind = "AUTH_FAIL"
	KindReplay      Kind = "REPLAY"
	KindCipherFail  Kind = "CIPHER_FAIL"
	KindResolveFail Kind = "RESOLVE_FAIL"
	KindTimeout     Kind = "TIMEOUT"
	KindCipherInit  Kind = "CIPHER_INIT"
)

// Classify maps an error to its §7 disposition kind. A nil error
// classifies as the empty Kind; a non-nil error that matches none of the
// sentinels classifies as IO_FATAL (the catch-all "other socket/syscall
// errors" row).
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadHeader):
		return KindBadHeader
	case errors.Is(err, ErrAuthFail):
		return KindAuthFail
	case errors.Is(err, ErrReplay):
		return KindReplay
	case errors.Is(err, ErrCipherFail):
		return KindCipherFail
	case errors.Is(err, ErrResolveFail):
		return KindResolveFail
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCipherInit):
		return KindCipherInit
	default:
		return KindIOFatal
	}
}

// ACLBannable reports whether a connection ending with this error should,
// in black-list ACL mode, cause the peer to be added to the black list
// (spec §4.F edge-case policy, §7).
func ACLBannable(err error) bool {
	switch Classify(err) {
	case KindBadHeader, KindAuthFail:
		return true
	default:
		return false
	}
}
