package suite

import (
	"fmt"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
)

// unsupported lists catalog methods with no implementation reachable from
// this module: neither the standard library nor golang.org/x/crypto (the
// only crypto dependency anywhere in the retrieved example pack) provides
// Camellia, IDEA, RC2, or SEED. Rather than vendor a third-party
// implementation that appears nowhere in the corpus, New fails fast with
// CIPHER_INIT for these four, exactly as it would for a typo'd method
// name — see DESIGN.md for the per-method accounting.
var unsupported = map[domaincipher.Method]bool{
	domaincipher.Camellia128CFB: true,
	domaincipher.Camellia192CFB: true,
	domaincipher.Camellia256CFB: true,
	domaincipher.IDEACFB:        true,
	domaincipher.RC2CFB:         true,
	domaincipher.SEEDCFB:        true,
}

func checkSupported(method domaincipher.Method) error {
	if unsupported[method] {
		return fmt.Errorf("%w: %s has no available implementation in this build", protoerr.ErrCipherInit, method)
	}
	return nil
}
