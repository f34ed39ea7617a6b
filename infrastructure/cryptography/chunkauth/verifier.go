package chunkauth

import (
	"encoding/binary"
	"fmt"

	"shadowrelay/domain/protoerr"
)

const headerLen = 2 + MACLen

// Verifier reassembles and authenticates LEN|MAC|PAYLOAD chunks out of an
// arbitrarily fragmented decrypted stream (spec §4.C, §4.F's "chunk
// reassembly state: a partial buffer, an index, an expected length, a
// 32-bit counter"). Decrypted bytes may arrive split anywhere — mid
// length field, mid MAC, mid payload — so Feed buffers until a full chunk
// is available before verifying it.
type Verifier struct {
	iv      []byte
	counter uint32
	buf     []byte
}

// NewVerifier builds a Verifier keyed by the session's decrypt-side IV.
// iv must be the same bytes the peer's Emitter used to key its first
// chunk. Per-chunk HMAC keys are IV ‖ chunk-id only, see Emitter's doc
// comment — no derived key K is involved here.
func NewVerifier(iv []byte) *Verifier {
	return &Verifier{iv: append([]byte{}, iv...)}
}

// Feed appends newly decrypted bytes and returns every payload whose
// chunk has fully arrived and verified, in order. On a MAC mismatch it
// returns protoerr.ErrAuthFail and the chunks successfully verified
// before the failing one — per spec §8 scenario 5, "bytes of the first
// chunk may or may not have been delivered" but no tampered bytes are.
func (v *Verifier) Feed(data []byte) ([][]byte, error) {
	v.buf = append(v.buf, data...)

	var out [][]byte
	for {
		if len(v.buf) < headerLen {
			return out, nil
		}
		payloadLen := int(binary.BigEndian.Uint16(v.buf[0:2]))
		total := headerLen + payloadLen
		if len(v.buf) < total {
			return out, nil
		}

		mac := v.buf[2:headerLen]
		payload := v.buf[headerLen:total]
		if !verify(chunkKey(v.iv, v.counter), payload, mac) {
			v.buf = v.buf[total:]
			return out, fmt.Errorf("%w: chunk %d MAC mismatch", protoerr.ErrAuthFail, v.counter)
		}

		cp := make([]byte, payloadLen)
		copy(cp, payload)
		out = append(out, cp)
		v.counter++
		v.buf = v.buf[total:]
	}
}

// Counter returns the number of chunks verified so far.
func (v *Verifier) Counter() uint32 { return v.counter }
