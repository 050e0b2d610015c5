// Package ephemeral implements a ZooKeeper-style ephemeral sequential node
// registry: clients create numbered child nodes under a parent path, the
// child with the lowest sequence number is the current owner, and losing
// your session (expiry) hands ownership to the next-lowest surviving child.
//
// # Layout
//
// A parent path (e.g. "/locks/ticket-42") owns a monotonically increasing
// sequence counter. Each Create call mints a child node at
// "<parent>/<seq>" with seq equal to the parent's counter before it is
// incremented, so the first child is "<parent>/0".
// The parent node itself is a bookkeeping entry (IsParent true, no client,
// no expiry) and is never considered for ownership.
//
// # Ownership
//
// Owner(parentPath) is the client of the child with the smallest sequence
// number among parentPath's children. A child's CreationTime — and hence its
// expiry clock — starts when it becomes the owner (matches the source's
// reset_creation_time behavior), or at creation when its client already owns
// parentPath; other children sit with a nil CreationTime and never expire on
// their own. When the owner expires, Sweep
// deletes it and resets the new minimum child's CreationTime, cascading
// ownership hand-off one step at a time.
package ephemeral
