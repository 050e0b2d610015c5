package ephemeral

import (
	"errors"
	"testing"
	"time"
)

func TestCreateWithoutParentPathFails(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Create("", "client-a", time.Second); !errors.Is(err, ErrEmptyParentPath) {
		t.Errorf("Create with empty parent = %v, want ErrEmptyParentPath", err)
	}
}

func TestCreateFirstChildBecomesOwner(t *testing.T) {
	m := NewManager(nil)
	path, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if path != "/locks/ticket-1/0" {
		t.Errorf("path = %q, want /locks/ticket-1/0", path)
	}

	owner, ok := m.Owner("/locks/ticket-1")
	if !ok || owner != "client-a" {
		t.Errorf("Owner = (%q, %v), want (client-a, true)", owner, ok)
	}

	node, err := m.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if node.CreationTime == nil {
		t.Error("first child's CreationTime should be set (it's the owner)")
	}
}

func TestCreateSecondDifferentClientDoesNotBecomeOwner(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	secondPath, err := m.Create("/locks/ticket-1", "client-b", 30*time.Second)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	owner, _ := m.Owner("/locks/ticket-1")
	if owner != "client-a" {
		t.Errorf("owner = %q, want client-a (FIFO, lowest sequence)", owner)
	}

	node, err := m.Get(secondPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if node.CreationTime != nil {
		t.Error("non-owner child should have nil CreationTime")
	}
}

func TestCreateSameClientAlreadyOwnerKeepsOwnerCreationTime(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewManager(nil).WithClock(func() time.Time { return clock })

	firstPath, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	clock = clock.Add(5 * time.Second)

	if _, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second); err != nil {
		t.Fatalf("second Create: %v", err)
	}

	first, err := m.Get(firstPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !first.CreationTime.Equal(time.Unix(1000, 0)) {
		t.Errorf("first child CreationTime mutated unexpectedly: %v", first.CreationTime)
	}
}

func TestSequenceNumbersIncreasePerParent(t *testing.T) {
	m := NewManager(nil)
	paths := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		p, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second)
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		paths = append(paths, p)
	}
	want := []string{"/locks/ticket-1/0", "/locks/ticket-1/1", "/locks/ticket-1/2"}
	for i, p := range paths {
		if p != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, p, want[i])
		}
	}
}

func TestDeleteParentWithChildrenFails(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Delete("/locks/ticket-1"); !errors.Is(err, ErrParentHasChildren) {
		t.Errorf("Delete parent with children = %v, want ErrParentHasChildren", err)
	}
}

func TestDeleteLastChildGarbageCollectsParent(t *testing.T) {
	m := NewManager(nil)
	path, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Delete(path); err != nil {
		t.Fatalf("Delete child: %v", err)
	}
	if _, err := m.Get("/locks/ticket-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("parent after last child removed: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteUnknownPathFails(t *testing.T) {
	m := NewManager(nil)
	if err := m.Delete("/locks/nowhere/3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete unknown path = %v, want ErrNotFound", err)
	}
}

func TestSweepCascadesOwnershipOnExpiry(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewManager(nil).WithClock(func() time.Time { return clock })

	firstPath, err := m.Create("/locks/ticket-1", "client-a", 5*time.Second)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	secondPath, err := m.Create("/locks/ticket-1", "client-b", 30*time.Second)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	clock = clock.Add(6 * time.Second)
	if err := m.Sweep(clock); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := m.Get(firstPath); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired owner still present: err = %v", err)
	}

	owner, ok := m.Owner("/locks/ticket-1")
	if !ok || owner != "client-b" {
		t.Errorf("owner after hand-off = (%q, %v), want (client-b, true)", owner, ok)
	}

	second, err := m.Get(secondPath)
	if err != nil {
		t.Fatalf("Get second: %v", err)
	}
	if second.CreationTime == nil || !second.CreationTime.Equal(clock) {
		t.Errorf("new owner's CreationTime = %v, want %v (reset at hand-off)", second.CreationTime, clock)
	}
}

func TestSweepGarbageCollectsParentWhenLastOwnerExpiresAlone(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewManager(nil).WithClock(func() time.Time { return clock })

	path, err := m.Create("/locks/ticket-1", "client-a", 5*time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock = clock.Add(6 * time.Second)
	if err := m.Sweep(clock); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := m.Get(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired child still present: err = %v", err)
	}
	if _, err := m.Get("/locks/ticket-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("childless parent not garbage collected: err = %v", err)
	}
}

func TestSweepLeavesNonExpiredNodesAlone(t *testing.T) {
	clock := time.Unix(1000, 0)
	m := NewManager(nil).WithClock(func() time.Time { return clock })

	path, err := m.Create("/locks/ticket-1", "client-a", 300*time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock = clock.Add(5 * time.Second)
	if err := m.Sweep(clock); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := m.Get(path); err != nil {
		t.Errorf("non-expired node removed: %v", err)
	}
}

func TestEnumerateReturnsSnapshotCopies(t *testing.T) {
	m := NewManager(nil)
	path, err := m.Create("/locks/ticket-1", "client-a", 30*time.Second)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	snapshot := m.Enumerate()
	node, ok := snapshot[path]
	if !ok {
		t.Fatalf("Enumerate missing %q", path)
	}
	node.ClientID = "mutated"

	fresh, err := m.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.ClientID != "client-a" {
		t.Error("mutating an Enumerate snapshot affected internal state")
	}
}

func TestOwnerOnUnknownParentPathReturnsFalse(t *testing.T) {
	m := NewManager(nil)
	if _, ok := m.Owner("/locks/nothing-here"); ok {
		t.Error("expected no owner for a parent path with no children")
	}
}
