package lockapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/torua-coordination/ringlock/internal/telemetry"
)

// ErrLockAlreadyHeld is returned by Acquire when key is held by a different,
// non-expired client. The source's equivalent branch referenced uninitialized
// fields while composing a "time remaining" message (§9's noted bug); this
// implementation simply reports the current holder.
type ErrLockAlreadyHeld struct {
	Key   string
	Owner string
}

func (e *ErrLockAlreadyHeld) Error() string {
	return fmt.Sprintf("lockapi: key %q already held by %q", e.Key, e.Owner)
}

// ErrNotFound is returned by Release and Status for a key with no lock.
var ErrNotFound = errors.New("lockapi: key not found")

// Manager is the named-lock registry: one owner per key. All methods are
// safe for concurrent use; the registry is a single shared structure
// protected by one mutex, per §5's coarse-exclusion model.
type Manager struct {
	mu      sync.Mutex
	locks   map[string]*Lock
	now     func() time.Time
	metrics *telemetry.Metrics
}

// NewManager creates an empty lock registry. metrics may be nil.
func NewManager(metrics *telemetry.Metrics) *Manager {
	return &Manager{
		locks:   make(map[string]*Lock),
		now:     time.Now,
		metrics: metrics,
	}
}

// WithClock overrides the manager's time source, for deterministic tests of
// TTL expiry without real sleeps.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Acquire attempts to acquire key for clientID with the given TTL.
//
//   - absent key: always succeeds, creating a new lock.
//   - held by clientID: always succeeds, renewing AcquiredAt (identity
//     renewal preserves ownership, §8 property 4).
//   - held by another client, not expired: fails with *ErrLockAlreadyHeld.
//   - held by another client, expired: succeeds, stealing ownership.
func (m *Manager) Acquire(key, clientID string, ttl time.Duration) (*Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	existing, ok := m.locks[key]
	if !ok {
		lock := &Lock{Key: key, OwnerClient: clientID, TTL: ttl, AcquiredAt: now}
		m.locks[key] = lock
		if m.metrics != nil {
			m.metrics.LockAcquires.Inc()
		}
		return lock, nil
	}

	if existing.OwnerClient == clientID {
		existing.TTL = ttl
		existing.AcquiredAt = now
		if m.metrics != nil {
			m.metrics.LockAcquires.Inc()
		}
		return existing, nil
	}

	if existing.StatusAt(now) == StatusExpired {
		existing.OwnerClient = clientID
		existing.TTL = ttl
		existing.AcquiredAt = now
		if m.metrics != nil {
			m.metrics.LockSteals.Inc()
		}
		return existing, nil
	}

	if m.metrics != nil {
		m.metrics.LockDenied.Inc()
	}
	return nil, &ErrLockAlreadyHeld{Key: key, Owner: existing.OwnerClient}
}

// Release removes key's lock if requester is the current owner. It returns
// false (no mutation) if requester is not the owner, and ErrNotFound if key
// has no lock at all.
func (m *Manager) Release(key, requester string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[key]
	if !ok {
		return false, ErrNotFound
	}
	if existing.OwnerClient != requester {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// Status returns a copy of key's lock state (with Status evaluated against
// the current clock) or ErrNotFound if the key is absent.
func (m *Manager) Status(key string) (*Lock, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	copyLock := *existing
	return &copyLock, existing.StatusAt(m.now()), nil
}

// Enumerate returns a snapshot of every lock with its lazily-evaluated
// status, for the diagnostic GET /all_locks endpoint.
func (m *Manager) Enumerate() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make(map[string]Status, len(m.locks))
	for key, lock := range m.locks {
		out[key] = lock.StatusAt(now)
	}
	return out
}

// Sweep implements sweeper.Sweepable: it deletes every lock whose status is
// expired as of now. This is pure garbage collection — lazy evaluation in
// Status/Acquire/Enumerate already makes expiry observable between ticks.
func (m *Manager) Sweep(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, lock := range m.locks {
		if lock.StatusAt(now) == StatusExpired {
			delete(m.locks, key)
			if m.metrics != nil {
				m.metrics.LockExpiries.Inc()
			}
		}
	}
	return nil
}
