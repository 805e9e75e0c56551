// Package dsa holds the data structures behind the per-user serializer.
//
// HashRing maps user ids onto a fixed set of lanes so that every command for
// one user lands on the same lane.
package dsa

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// ─── Consistent Hash Ring ───────────────────────────────────────────────────
// Each lane gets VirtualNodes positions on the ring.
// Lookup: O(log n) via binary search on the sorted ring.
// The lane set is fixed once the dispatcher starts; lanes are never removed
// while commands are queued on them.

// HashRingConfig configures the consistent hash ring.
type HashRingConfig struct {
	VirtualNodes int // positions per lane (default 64)
}

// DefaultHashRingConfig returns production defaults.
func DefaultHashRingConfig() HashRingConfig {
	return HashRingConfig{VirtualNodes: 64}
}

// HashRing implements a consistent hash ring with virtual nodes.
type HashRing struct {
	mu           sync.RWMutex
	ring         []ringPoint  // sorted by hash
	lanes        map[int]bool // lane set
	virtualNodes int
}

type ringPoint struct {
	hash uint32
	lane int
}

// NewHashRing creates an empty ring.
func NewHashRing(cfg HashRingConfig) *HashRing {
	if cfg.VirtualNodes <= 0 {
		cfg.VirtualNodes = DefaultHashRingConfig().VirtualNodes
	}
	return &HashRing{
		lanes:        make(map[int]bool),
		virtualNodes: cfg.VirtualNodes,
	}
}

// NewLaneRing creates a ring holding lanes 0..n-1.
func NewLaneRing(n int, cfg HashRingConfig) *HashRing {
	h := NewHashRing(cfg)
	for i := 0; i < n; i++ {
		h.AddLane(i)
	}
	return h
}

// AddLane places a lane and its virtual replicas on the ring.
func (h *HashRing) AddLane(lane int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lanes[lane] {
		return
	}
	h.lanes[lane] = true

	for i := 0; i < h.virtualNodes; i++ {
		h.ring = append(h.ring, ringPoint{hash: hashKey(fmt.Sprintf("lane-%d#%d", lane, i)), lane: lane})
	}
	sort.Slice(h.ring, func(i, j int) bool {
		return h.ring[i].hash < h.ring[j].hash
	})
}

// Lookup returns the lane that owns key, or -1 on an empty ring.
func (h *HashRing) Lookup(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.ring) == 0 {
		return -1
	}

	hash := hashKey(key)
	idx := sort.Search(len(h.ring), func(i int) bool {
		return h.ring[i].hash >= hash
	})
	// Wrap around if past the end
	if idx >= len(h.ring) {
		idx = 0
	}
	return h.ring[idx].lane
}

// hashKey takes the first four bytes of SHA-256.
func hashKey(key string) uint32 {
	h := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint32(h[:4])
}
