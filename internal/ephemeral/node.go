package ephemeral

import "time"

// Node is a single ephemeral node: either a parent bookkeeping entry or a
// numbered child competing for ownership of its parent path.
type Node struct {
	Path         string
	ClientID     string // empty for parent nodes
	SessionTTL   time.Duration
	Sequence     int
	IsParent     bool
	CreationTime *time.Time // nil until the node becomes the owner, unless its client already owned the parent at creation
}

// expiredAt reports whether the node's session has elapsed as of now. A node
// whose CreationTime has never been set (not yet, or never, the owner) can't
// expire.
func (n *Node) expiredAt(now time.Time) bool {
	if n.CreationTime == nil {
		return false
	}
	return now.Sub(*n.CreationTime) > n.SessionTTL
}

// resetCreationTime stamps the node as becoming the current owner as of now.
func (n *Node) resetCreationTime(now time.Time) {
	t := now
	n.CreationTime = &t
}
