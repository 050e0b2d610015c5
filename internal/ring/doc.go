// Package ring implements the consistent-hashing router that shards
// key/value entries across a dynamic set of cache node backends.
//
// # Overview
//
// A Router holds a set of physical servers, each represented on the ring by
// one "parent" virtual-node token plus replicationFactor-1 alias tokens. All
// tokens are positions of a single 128-bit hash function (MD5 of the UTF-8
// input, read as an unsigned big-endian integer) on a logical ring; routing
// a key walks clockwise from its hash to the nearest token and resolves that
// token back to its parent's backend.
//
// # Membership and data placement
//
// Adding or removing a server only changes the token set — it never moves
// previously-placed keys. A key placed on server X before a membership
// change that now hashes to server Y simply becomes unreachable through the
// ring until it is re-inserted (or expires out of X's LRU on its own). This
// is an explicit non-goal inherited from the source design: the ring never
// performs data migration on add_server/remove_server.
//
// # Concurrency
//
// A Router is a single shared mutable structure protected by one mutex —
// the same coarse-grained model used by every other stateful component in
// this module.
package ring
