package cachenode

import "testing"

func TestNodePutGetRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "simple key", key: "key1", value: "v1"},
		{name: "empty value", key: "key2", value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(1, 3)
			n.Put(tt.key, tt.value)
			got, ok := n.Get(tt.key)
			if !ok {
				t.Fatalf("expected key %q to be present", tt.key)
			}
			if got != tt.value {
				t.Errorf("got %q, want %q", got, tt.value)
			}
		})
	}
}

func TestNodeGetMissing(t *testing.T) {
	n := New(1, 3)
	if _, ok := n.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

// TestNodeEvictsLeastRecentlyUsed mirrors spec.md §8's concrete LRU scenario:
// size 3; put k1,k2,k3; get k1; put k4 ⇒ k2 evicted, k3 and k4 survive.
func TestNodeEvictsLeastRecentlyUsed(t *testing.T) {
	n := New(1, 3)
	n.Put("k1", "v1")
	n.Put("k2", "v2")
	n.Put("k3", "v3")

	if v, ok := n.Get("k1"); !ok || v != "v1" {
		t.Fatalf("get k1 = (%q, %v), want (v1, true)", v, ok)
	}

	n.Put("k4", "v4")

	if _, ok := n.Get("k2"); ok {
		t.Error("expected k2 to be evicted")
	}
	if v, ok := n.Get("k3"); !ok || v != "v3" {
		t.Errorf("get k3 = (%q, %v), want (v3, true)", v, ok)
	}
	if v, ok := n.Get("k4"); !ok || v != "v4" {
		t.Errorf("get k4 = (%q, %v), want (v4, true)", v, ok)
	}
}

func TestNodeOverwriteUpdatesValueAndRecency(t *testing.T) {
	n := New(1, 2)
	n.Put("a", "1")
	n.Put("b", "2")
	n.Put("a", "1-new") // a is now MRU again
	n.Put("c", "3")     // should evict b, not a

	if _, ok := n.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := n.Get("a"); !ok || v != "1-new" {
		t.Errorf("get a = (%q, %v), want (1-new, true)", v, ok)
	}
}

func TestNodeSizeNeverExceedsCapacity(t *testing.T) {
	n := New(1, 2)
	for i := 0; i < 10; i++ {
		n.Put(string(rune('a'+i)), "v")
		if n.Size() > 2 {
			t.Fatalf("size %d exceeds capacity 2 after %d puts", n.Size(), i+1)
		}
	}
}
