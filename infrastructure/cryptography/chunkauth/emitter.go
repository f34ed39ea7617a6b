package chunkauth

import "encoding/binary"

// Emitter frames outgoing plaintext into LEN|MAC|PAYLOAD records (spec
// §4.C). One Emitter serves one direction of one session; its counter is
// session-local and starts at 0, matching the session state described in
// spec §4 "chunk reassembly state ... a 32-bit counter". Per-chunk HMAC
// keys are IV ‖ chunk-id only (original source: "The key of HMAC-SHA1 is
// (IV + CHUNK ID)") — unlike the one-time header MAC, K never enters a
// chunk key.
type Emitter struct {
	iv      []byte
	counter uint32
}

// NewEmitter builds an Emitter keyed by the session's decrypt-side IV.
func NewEmitter(iv []byte) *Emitter {
	return &Emitter{iv: append([]byte{}, iv...)}
}

// Emit frames one chunk of plaintext, advancing the counter by one. The
// caller is responsible for splitting payload into chunks no larger than
// the buffer size in use (spec §8 property 5 allows arbitrary chunk
// sizes up to BUF_SIZE).
func (e *Emitter) Emit(payload []byte) []byte {
	mac := sign(chunkKey(e.iv, e.counter), payload)
	e.counter++

	out := make([]byte, 2+MACLen+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(payload)))
	copy(out[2:2+MACLen], mac)
	copy(out[2+MACLen:], payload)
	return out
}

// Counter returns the number of chunks emitted so far.
func (e *Emitter) Counter() uint32 { return e.counter }
