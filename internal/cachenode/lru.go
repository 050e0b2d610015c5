package cachenode

import (
	"strconv"
	"sync"

	"github.com/torua-coordination/ringlock/internal/telemetry"
)

// entry is one key/value pair and its place in the recency list.
//
// Invariant (shared with skipor-memcached's cache/lru): the fake head and
// fake tail never hold real data; all real entries live strictly between
// them, so every insert/remove is branch-free — no nil checks for "is this
// the first/last real entry".
type entry struct {
	key, value string
	prev, next *entry
}

// Node is one physical server's LRU-bounded key/value store — the in-process
// backend referenced by a ring parent token, or the storage behind a
// standalone cache node server.
type Node struct {
	mu sync.Mutex

	instanceNo int
	capacity   int
	index      map[string]*entry
	head, tail *entry // sentinels; head.next is LRU, tail.prev is MRU

	metrics *telemetry.Metrics // optional; nil disables counters
}

// New creates a cache node with the given instance number (an opaque
// identifier used in logs and as the metrics label) and capacity (maximum
// number of entries).
func New(instanceNo, capacity int) *Node {
	head, tail := &entry{}, &entry{}
	head.next = tail
	tail.prev = head
	return &Node{
		instanceNo: instanceNo,
		capacity:   capacity,
		index:      make(map[string]*entry),
		head:       head,
		tail:       tail,
	}
}

// WithMetrics attaches a shared telemetry.Metrics to this node; subsequent
// operations report hits/misses/evictions/size under this node's instance
// number as the label. Not safe to call concurrently with Get/Put.
func (n *Node) WithMetrics(m *telemetry.Metrics) *Node {
	n.metrics = m
	return n
}

func (n *Node) instanceLabel() string {
	return strconv.Itoa(n.instanceNo)
}

// InstanceNo returns this node's identifier.
func (n *Node) InstanceNo() int { return n.instanceNo }

// Put inserts or overwrites key with value, marking it most recently used.
// If the insert pushes the node over capacity, the least recently used entry
// is evicted.
func (n *Node) Put(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.index[key]; ok {
		n.unlink(old)
	}
	n.appendMRU(key, value)

	if len(n.index) > n.capacity {
		lru := n.head.next
		n.unlink(lru)
		delete(n.index, lru.key)
		if n.metrics != nil {
			n.metrics.CacheEvictions.WithLabelValues(n.instanceLabel()).Inc()
		}
	}
	if n.metrics != nil {
		n.metrics.CacheSize.WithLabelValues(n.instanceLabel()).Set(float64(len(n.index)))
	}
}

// Get returns the value for key and marks it most recently used. The second
// return value is false if the key is absent — "not found" is the only
// failure mode; Get never errors.
func (n *Node) Get(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.index[key]
	if !ok {
		if n.metrics != nil {
			n.metrics.CacheMisses.WithLabelValues(n.instanceLabel()).Inc()
		}
		return "", false
	}
	n.unlink(e)
	n.appendMRU(e.key, e.value)
	if n.metrics != nil {
		n.metrics.CacheHits.WithLabelValues(n.instanceLabel()).Inc()
	}
	return e.value, true
}

// Size returns the current number of entries held.
func (n *Node) Size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.index)
}

// appendMRU inserts a fresh entry for (key, value) immediately before the
// tail sentinel and indexes it. Caller must hold n.mu.
func (n *Node) appendMRU(key, value string) {
	e := &entry{key: key, value: value}
	prev := n.tail.prev
	prev.next = e
	e.prev = prev
	e.next = n.tail
	n.tail.prev = e
	n.index[key] = e
}

// unlink detaches e from the recency list without touching the index.
// Caller must hold n.mu.
func (n *Node) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}
