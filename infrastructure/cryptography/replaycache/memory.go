// Package replaycache implements the replay-detection cache (spec §4.B,
// component B): a bounded set of previously observed decrypt IVs.
//
// Grounded on the teacher's infrastructure/cryptography/chacha20/
// replay_window.go for the mutex-guarded "check without mutating, then
// accept" split — but the eviction policy itself is new, since TunGo's
// replay window is a sliding bitmap over sequence numbers while this spec
// wants a fixed-capacity, insertion-ordered set of arbitrary byte strings
// (spec §4.B: "Capacity 256 entries; eviction order is insertion order").
package replaycache

import (
	"container/list"
	"sync"

	"shadowrelay/application/replay"
	"shadowrelay/infrastructure/settings"
)

// memoryCache is the default, single-process replay.Cache: a FIFO set
// backed by a doubly linked list (eviction order) and a map (O(1)
// membership), bounded at capacity entries.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

// New returns the default in-memory replay cache, sized per spec §4.B
// (capacity 256).
func New() replay.Cache {
	return NewWithCapacity(settings.ReplayCacheCapacity)
}

// NewWithCapacity builds a cache with an explicit capacity, mainly for
// tests exercising the eviction boundary without 256 insertions.
func NewWithCapacity(capacity int) replay.Cache {
	return &memoryCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Admit reports whether iv is new (true, and now recorded) or a replay
// (false, unmodified). Matches spec §4.B's insertion policy: "If present
// -> fail ... REPLAY. If absent -> insert; if over capacity, evict
// oldest."
func (c *memoryCache) Admit(iv []byte) bool {
	key := string(iv)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; ok {
		return false
	}

	elem := c.order.PushBack(key)
	c.index[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(string))
	}
	return true
}
