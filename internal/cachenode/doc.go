// Package cachenode implements the LRU-bounded key/value store that backs
// one physical server's slot on the hash ring.
//
// # Overview
//
// A Node holds a fixed capacity of string key/value pairs. Internally it
// pairs a map (for O(1) key lookup) with a sentinel-headed doubly linked
// list (for O(1) recency reordering), the same structure as a textbook LRU
// cache: the map's node set and the list's node set are always identical,
// the list's tail is the most-recently-used entry and its head is the
// least-recently-used one, and Put/Get both move the touched entry to the
// tail.
//
// # Concurrency
//
// Each Node is protected by a single sync.Mutex — one exclusion region per
// instance, as required for every stateful component in this module. There
// is no finer-grained locking; at the capacities this system targets a
// single mutex does not become a bottleneck.
package cachenode
