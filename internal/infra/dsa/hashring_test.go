package dsa

import (
	"fmt"
	"testing"
)

func TestHashRing_EmptyLookup(t *testing.T) {
	h := NewHashRing(DefaultHashRingConfig())
	if got := h.Lookup("1001"); got != -1 {
		t.Errorf("Lookup on empty ring = %d, want -1", got)
	}
}

func TestHashRing_Stable(t *testing.T) {
	h := NewLaneRing(8, DefaultHashRingConfig())
	if len(h.lanes) != 8 {
		t.Fatalf("lanes = %d, want 8", len(h.lanes))
	}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("user-%d", i)
		if a, b := h.Lookup(key), h.Lookup(key); a != b {
			t.Fatalf("Lookup(%s) not stable: %d vs %d", key, a, b)
		}
	}
}

func TestHashRing_Distribution(t *testing.T) {
	h := NewLaneRing(4, DefaultHashRingConfig())
	counts := make(map[int]int)
	for i := 0; i < 4000; i++ {
		counts[h.Lookup(fmt.Sprintf("%d", 100000+i))]++
	}
	for lane := 0; lane < 4; lane++ {
		if counts[lane] < 500 {
			t.Errorf("lane %d got %d of 4000 keys, distribution too skewed", lane, counts[lane])
		}
	}
}

func TestHashRing_AddIdempotent(t *testing.T) {
	h := NewHashRing(HashRingConfig{VirtualNodes: 10})
	h.AddLane(1)
	h.AddLane(1)
	if len(h.lanes) != 1 || len(h.ring) != 10 {
		t.Errorf("lanes=%d points=%d, want 1/10", len(h.lanes), len(h.ring))
	}
}
