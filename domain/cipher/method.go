// Package cipher defines the static catalog of supported stream-cipher
// methods and their key/IV sizes. It holds no cryptographic logic — see
// infrastructure/cryptography/suite for that.
package cipher

import (
	"encoding/json"
	"fmt"
)

// Method identifies one entry of the fixed cipher catalog (spec §3/§6).
type Method int

const (
	Table Method = iota
	RC4
	RC4MD5
	AES128CFB
	AES192CFB
	AES256CFB
	BlowfishCFB
	Camellia128CFB
	Camellia192CFB
	Camellia256CFB
	CAST5CFB
	DESCFB
	IDEACFB
	RC2CFB
	SEEDCFB
	Salsa20
	ChaCha20
	ChaCha20IETF
)

// Class groups methods by how their cryptographic primitive is invoked.
type Class int

const (
	ClassTable Class = iota
	ClassStreamCFB
	ClassCounter
)

type spec struct {
	name    string
	keyLen  int
	ivLen   int
	class   Class
}

var catalog = map[Method]spec{
	Table:          {"table", 0, 0, ClassTable},
	RC4:            {"rc4", 16, 0, ClassStreamCFB},
	RC4MD5:         {"rc4-md5", 16, 16, ClassStreamCFB},
	AES128CFB:      {"aes-128-cfb", 16, 16, ClassStreamCFB},
	AES192CFB:      {"aes-192-cfb", 24, 16, ClassStreamCFB},
	AES256CFB:      {"aes-256-cfb", 32, 16, ClassStreamCFB},
	BlowfishCFB:    {"bf-cfb", 16, 8, ClassStreamCFB},
	Camellia128CFB: {"camellia-128-cfb", 16, 16, ClassStreamCFB},
	Camellia192CFB: {"camellia-192-cfb", 24, 16, ClassStreamCFB},
	Camellia256CFB: {"camellia-256-cfb", 32, 16, ClassStreamCFB},
	CAST5CFB:       {"cast5-cfb", 16, 8, ClassStreamCFB},
	DESCFB:         {"des-cfb", 8, 8, ClassStreamCFB},
	IDEACFB:        {"idea-cfb", 16, 8, ClassStreamCFB},
	RC2CFB:         {"rc2-cfb", 16, 8, ClassStreamCFB},
	SEEDCFB:        {"seed-cfb", 16, 16, ClassStreamCFB},
	Salsa20:        {"salsa20", 32, 8, ClassCounter},
	ChaCha20:       {"chacha20", 32, 8, ClassCounter},
	ChaCha20IETF:   {"chacha20-ietf", 32, 12, ClassCounter},
}

var byName = func() map[string]Method {
	m := make(map[string]Method, len(catalog))
	for method, s := range catalog {
		m[s.name] = method
	}
	return m
}()

// Parse resolves a method by its wire/CLI name (e.g. "aes-256-cfb").
func Parse(name string) (Method, error) {
	m, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("unknown cipher method %q", name)
	}
	return m, nil
}

func (m Method) String() string {
	if s, ok := catalog[m]; ok {
		return s.name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// KeyLen returns the key length in bytes for the method.
func (m Method) KeyLen() int { return catalog[m].keyLen }

// IVLen returns the IV length in bytes for the method (0 for table/rc4).
func (m Method) IVLen() int { return catalog[m].ivLen }

// Class reports which family of primitive implements the method.
func (m Method) Class() Class { return catalog[m].class }

// HasIV reports whether the method carries a per-session IV at all. Per
// invariant 2 in spec §3, the table and RC4 methods have none, and so are
// exempt from replay-cache checks.
func (m Method) HasIV() bool { return m.IVLen() > 0 }

func (m Method) MarshalJSON() ([]byte, error) {
	s, ok := catalog[m]
	if !ok {
		return nil, fmt.Errorf("invalid cipher method %d", int(m))
	}
	return json.Marshal(s.name)
}

func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
