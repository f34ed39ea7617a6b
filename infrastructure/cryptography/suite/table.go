package suite

import (
	"crypto/md5"
	"encoding/binary"
	"sort"
)

// tableCipher is the legacy "table" method: a 256-entry byte substitution
// permutation seeded from the password, with no per-session IV (catalog
// key/IV length 0 — invariant 2 in spec §3 exempts it from the replay
// cache). Seeding follows the classic two-phase sort: table[i]=i, then
// 1023 stable re-sorts keyed on a running modulus of the password-derived
// 64-bit seed, which is the construction every shadowsocks-compatible
// implementation of this method uses.
type tableCipher struct {
	encryptTable [256]byte
	decryptTable [256]byte
}

func newTableCipher(passwordBytes []byte) *tableCipher {
	sum := md5.Sum(passwordBytes)
	seed := binary.LittleEndian.Uint64(sum[:8])

	var table [256]int
	for i := range table {
		table[i] = i
	}
	for i := uint64(1); i < 1024; i++ {
		sort.SliceStable(table[:], func(x, y int) bool {
			return seed%(uint64(table[x])+i) < seed%(uint64(table[y])+i)
		})
	}

	tc := &tableCipher{}
	for i, v := range table {
		tc.encryptTable[i] = byte(v)
		tc.decryptTable[byte(v)] = byte(i)
	}
	return tc
}

// tableContext is the per-direction view over a shared tableCipher; the
// permutation is stateless so both directions of a session may point at
// the same tableCipher instance.
type tableContext struct {
	table   *tableCipher
	encrypt bool
}

func (c *tableContext) IV() []byte { return nil }

func (c *tableContext) Update(in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	lut := &c.table.decryptTable
	if c.encrypt {
		lut = &c.table.encryptTable
	}
	for i, b := range in {
		out[i] = lut[b]
	}
	return out, nil
}
