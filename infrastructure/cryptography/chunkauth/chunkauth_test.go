package chunkauth

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"shadowrelay/domain/protoerr"
)

func testIV() []byte { return []byte("0123456789abcdef") }
func testKey() []byte { return []byte("supersecretkey!!") }

// TestChunkAuthIdempotence is spec §8 property 5: for a plaintext stream
// split into chunks of random sizes 1..bufSize, verify(emit(stream)) ==
// stream and the final counter equals the chunk count.
func TestChunkAuthIdempotence(t *testing.T) {
	const bufSize = 2048
	rng := rand.New(rand.NewSource(1))

	stream := make([]byte, 50000)
	rng.Read(stream)

	var chunks [][]byte
	for off := 0; off < len(stream); {
		n := 1 + rng.Intn(bufSize)
		if off+n > len(stream) {
			n = len(stream) - off
		}
		chunks = append(chunks, stream[off:off+n])
		off += n
	}

	emitter := NewEmitter(testIV())
	var wire bytes.Buffer
	for _, c := range chunks {
		wire.Write(emitter.Emit(c))
	}

	verifier := NewVerifier(testIV())
	var got bytes.Buffer
	// Feed the wire bytes back in small, arbitrarily-sized pieces to
	// exercise reassembly across fragment boundaries too.
	wireBytes := wire.Bytes()
	for off := 0; off < len(wireBytes); {
		n := 1 + rng.Intn(37)
		if off+n > len(wireBytes) {
			n = len(wireBytes) - off
		}
		out, err := verifier.Feed(wireBytes[off : off+n])
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		for _, p := range out {
			got.Write(p)
		}
		off += n
	}

	if !bytes.Equal(got.Bytes(), stream) {
		t.Fatal("reassembled stream does not match original")
	}
	if verifier.Counter() != uint32(len(chunks)) {
		t.Fatalf("counter = %d, want %d", verifier.Counter(), len(chunks))
	}
	if emitter.Counter() != verifier.Counter() {
		t.Fatalf("emitter counter %d != verifier counter %d", emitter.Counter(), verifier.Counter())
	}
}

// TestTamperedChunkFailsAuth is spec §8 scenario 5: flipping one payload
// byte in the second of two chunks must fail with AUTH_FAIL and must not
// deliver the tampered chunk's bytes.
func TestTamperedChunkFailsAuth(t *testing.T) {
	emitter := NewEmitter(testIV())
	first := emitter.Emit(bytes.Repeat([]byte{0xAA}, 10))
	second := emitter.Emit(bytes.Repeat([]byte{0xBB}, 5))
	second[len(second)-1] ^= 0xFF // flip one payload byte

	verifier := NewVerifier(testIV())
	wire := append(append([]byte{}, first...), second...)

	out, err := verifier.Feed(wire)
	if !errors.Is(err, protoerr.ErrAuthFail) {
		t.Fatalf("error = %v, want ErrAuthFail", err)
	}
	for _, c := range out {
		if bytes.Equal(c, bytes.Repeat([]byte{0xBB}, 5)) {
			t.Fatal("tampered chunk payload was delivered")
		}
	}
}

func TestHeaderMACRoundTrip(t *testing.T) {
	addr := []byte{0x03, 4, 'h', 'o', 's', 't', 0x00, 0x50}
	mac := HeaderMAC(testIV(), testKey(), addr)
	if len(mac) != MACLen {
		t.Fatalf("len = %d, want %d", len(mac), MACLen)
	}
	if err := VerifyHeaderMAC(testIV(), testKey(), addr, mac); err != nil {
		t.Fatalf("VerifyHeaderMAC: %v", err)
	}

	mac[0] ^= 0xFF
	if err := VerifyHeaderMAC(testIV(), testKey(), addr, mac); !errors.Is(err, protoerr.ErrAuthFail) {
		t.Fatalf("tampered MAC: error = %v, want ErrAuthFail", err)
	}
}
