// Package buffer implements the growable byte buffer from spec §4.D
// (component D): (array, capacity, len, idx) with idx <= len <= capacity,
// where [idx, len) is the unsent tail of a partial write.
//
// Grounded on the teacher's infrastructure/network/tcp_full_write_adapter.go
// for the "retain the unsent remainder, advance by n, retry" discipline —
// generalized here into a standalone buffer type since the spec names it
// as an independent component (D) shared by both the connection and
// target records, not only a write adapter's internal state.
package buffer

// Buffer is a growable byte buffer tracking how much of its content has
// been drained by a partial write.
type Buffer struct {
	data []byte
	len  int
	idx  int
}

// New returns a Buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() {
	b.len = 0
	b.idx = 0
}

// Len returns the number of valid bytes, len(b.data[:b.len]).
func (b *Buffer) Len() int { return b.len }

// Idx returns how much of [0, Len) has already been drained.
func (b *Buffer) Idx() int { return b.idx }

// Cap returns the current backing-array capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Pending reports whether any unsent tail remains.
func (b *Buffer) Pending() bool { return b.idx < b.len }

// Unsent returns the unsent tail [idx, len). The returned slice aliases
// the buffer's backing array and is only valid until the next mutating
// call.
func (b *Buffer) Unsent() []byte { return b.data[b.idx:b.len] }

// Grow ensures capacity for at least need bytes, growing to
// max(need, hint) when the current capacity is insufficient (spec §4.D:
// "brealloc(buf, need, hint) grows capacity to max(need, hint) if current
// is smaller; shrinking is never performed implicitly").
func (b *Buffer) Grow(need, hint int) {
	if cap(b.data) >= need {
		return
	}
	target := need
	if hint > target {
		target = hint
	}
	grown := make([]byte, target)
	copy(grown, b.data[:b.len])
	b.data = grown
}

// Fill grows the buffer to hold len(p) bytes at offset 0, copies p in,
// resets idx to 0, and sets Len to len(p). Used to load freshly decrypted
// plaintext before a send attempt.
func (b *Buffer) Fill(p []byte) {
	b.Grow(len(p), len(p))
	copy(b.data, p)
	b.len = len(p)
	b.idx = 0
}

// Advance records that n more bytes of the unsent tail have been sent
// (spec §4.D / §4.G: "the remainder must be retained with
// (idx += sent, len -= sent)" — modeled here as idx advancing over a
// buffer that keeps len fixed, an equivalent formulation that avoids a
// second copy per partial write).
func (b *Buffer) Advance(n int) {
	b.idx += n
	if b.idx > b.len {
		b.idx = b.len
	}
	if b.idx == b.len {
		b.Reset()
	}
}

// Bytes returns the full valid region [0, len), ignoring idx. Used by
// readers that consume the whole buffer at once (e.g. the cipher
// contexts), as opposed to the partial-write bookkeeping above.
func (b *Buffer) Bytes() []byte { return b.data[:b.len] }
