package ephemeral

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/torua-coordination/ringlock/internal/telemetry"
)

// ErrEmptyParentPath is returned by Create when parentPath is empty — a node
// cannot be created without a parent to sequence under.
var ErrEmptyParentPath = errors.New("ephemeral: parent path must not be empty")

// ErrNotFound is returned by Delete and Get for an unknown path.
var ErrNotFound = errors.New("ephemeral: node not found")

// ErrParentHasChildren is returned by Delete when asked to remove a parent
// node that still owns children.
var ErrParentHasChildren = errors.New("ephemeral: parent node still has children")

// parentCounter tracks the next sequence number to hand out under a parent
// path; it lives alongside the parent bookkeeping Node itself.
type parentCounter struct {
	node *Node
	next int
}

// Manager is the ephemeral-node registry: one flat map of path -> Node plus
// a counter per parent path, all protected by a single mutex, per §5's
// coarse-exclusion model.
type Manager struct {
	mu       sync.Mutex
	nodes    map[string]*Node
	counters map[string]*parentCounter
	now      func() time.Time
	metrics  *telemetry.Metrics
}

// NewManager creates an empty ephemeral-node registry. metrics may be nil.
func NewManager(metrics *telemetry.Metrics) *Manager {
	return &Manager{
		nodes:    make(map[string]*Node),
		counters: make(map[string]*parentCounter),
		now:      time.Now,
		metrics:  metrics,
	}
}

// WithClock overrides the manager's time source, for deterministic tests of
// session expiry without real sleeps.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// childPaths returns the paths of every direct child of parentPath. Caller
// must hold m.mu.
func (m *Manager) childPaths(parentPath string) []string {
	prefix := parentPath + "/"
	var children []string
	for path, n := range m.nodes {
		if n.IsParent {
			continue
		}
		if strings.HasPrefix(path, prefix) && !strings.Contains(path[len(prefix):], "/") {
			children = append(children, path)
		}
	}
	return children
}

// ownerLocked returns the client ID of parentPath's current owner — the
// child with the smallest sequence number — or "", false if parentPath has
// no children. Caller must hold m.mu.
func (m *Manager) ownerLocked(parentPath string) (string, bool) {
	var owner *Node
	for _, path := range m.childPaths(parentPath) {
		child := m.nodes[path]
		if owner == nil || child.Sequence < owner.Sequence {
			owner = child
		}
	}
	if owner == nil {
		return "", false
	}
	return owner.ClientID, true
}

// Owner reports the current lock owner for parentPath, i.e. the client ID of
// the child node with the smallest sequence number.
func (m *Manager) Owner(parentPath string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerLocked(parentPath)
}

// Create mints a new ephemeral child node under parentPath for clientID,
// creating the parent bookkeeping node on first use. If no owner currently
// exists for parentPath, or the existing owner is clientID itself, the new
// node's session clock starts at once; in the second case the new node still
// queues behind the existing owner's lower-sequence node, whose clock is left
// as it is.
func (m *Manager) Create(parentPath, clientID string, ttl time.Duration) (string, error) {
	if parentPath == "" {
		return "", ErrEmptyParentPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, exists := m.counters[parentPath]
	if !exists {
		parent := &Node{Path: parentPath, IsParent: true, SessionTTL: ttl}
		m.nodes[parentPath] = parent
		pc = &parentCounter{node: parent, next: 0}
		m.counters[parentPath] = pc
	}

	seq := pc.next
	pc.next++

	path := fmt.Sprintf("%s/%d", parentPath, seq)
	node := &Node{
		Path:       path,
		ClientID:   clientID,
		SessionTTL: ttl,
		Sequence:   seq,
	}

	currentOwner, hasOwner := m.ownerLocked(parentPath)
	if !hasOwner || currentOwner == clientID {
		node.resetCreationTime(m.now())
	}
	m.nodes[path] = node
	return path, nil
}

// Delete removes path. Deleting a parent node with surviving children fails
// with ErrParentHasChildren. Deleting a child that leaves its parent
// childless garbage-collects the parent too.
func (m *Manager) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(path)
}

// deleteLocked is Delete's body, usable from Sweep which already holds m.mu.
func (m *Manager) deleteLocked(path string) error {
	node, ok := m.nodes[path]
	if !ok {
		return ErrNotFound
	}
	if node.IsParent {
		if len(m.childPaths(path)) > 0 {
			return ErrParentHasChildren
		}
		delete(m.nodes, path)
		delete(m.counters, path)
		return nil
	}

	delete(m.nodes, path)
	parentPath := parentOf(path)
	if len(m.childPaths(parentPath)) == 0 {
		delete(m.nodes, parentPath)
		delete(m.counters, parentPath)
		if m.metrics != nil {
			m.metrics.EphemeralParentGCs.Inc()
		}
	}
	return nil
}

// Get returns a copy of the node at path, or ErrNotFound.
func (m *Manager) Get(path string) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[path]
	if !ok {
		return nil, ErrNotFound
	}
	copyNode := *node
	return &copyNode, nil
}

// Enumerate returns a snapshot of every node currently registered, keyed by
// path, for the diagnostic GET /all_nodes endpoint.
func (m *Manager) Enumerate() map[string]*Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*Node, len(m.nodes))
	for path, node := range m.nodes {
		copyNode := *node
		out[path] = &copyNode
	}
	return out
}

// Sweep implements sweeper.Sweepable: it deletes every ephemeral node whose
// session has expired as of now and cascades ownership to the next-lowest
// surviving child of the same parent, resetting its creation time so its own
// session clock starts fresh. A parent left childless by the cascade is
// garbage-collected.
func (m *Manager) Sweep(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for path, node := range m.nodes {
		if !node.IsParent && node.expiredAt(now) {
			expired = append(expired, path)
		}
	}

	for _, path := range expired {
		parentPath := parentOf(path)
		if err := m.deleteLocked(path); err != nil {
			continue
		}
		var next *Node
		for _, childPath := range m.childPaths(parentPath) {
			child := m.nodes[childPath]
			if next == nil || child.Sequence < next.Sequence {
				next = child
			}
		}
		if next != nil {
			next.resetCreationTime(now)
			if m.metrics != nil {
				m.metrics.EphemeralHandoffs.Inc()
			}
		}
	}
	return nil
}

// parentOf returns the parent path component of a child path.
func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}
