package ticketing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for *Store, so Service's locking logic
// can be tested without a real Postgres connection.
type fakeStore struct {
	tickets map[int]Ticket
}

func newFakeStore(tickets ...Ticket) *fakeStore {
	fs := &fakeStore{tickets: make(map[int]Ticket)}
	for _, t := range tickets {
		fs.tickets[t.ID] = t
	}
	return fs
}

func (f *fakeStore) Get(_ context.Context, ticketID int) (Ticket, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeStore) Available(_ context.Context) ([]int, error) {
	var ids []int
	for id, t := range f.tickets {
		if t.State == StateAvailable {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) SetSoldToAndState(_ context.Context, ticketID int, soldTo string, state TicketState) error {
	t := f.tickets[ticketID]
	t.SoldTo = sql.NullString{String: soldTo, Valid: true}
	t.State = state
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) SetState(_ context.Context, ticketID int, state TicketState) error {
	t := f.tickets[ticketID]
	t.State = state
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) Init(_ context.Context, count int) error {
	f.tickets = make(map[int]Ticket)
	for i := 1; i <= count; i++ {
		f.tickets[i] = Ticket{ID: i, State: StateAvailable}
	}
	return nil
}

// fakeLockClient is an in-memory stand-in for *LockClient.
type fakeLockClient struct {
	owners map[string]string
}

func newFakeLockClient() *fakeLockClient {
	return &fakeLockClient{owners: make(map[string]string)}
}

func (f *fakeLockClient) AcquireLock(_ context.Context, key, clientID string, _ time.Duration) (bool, error) {
	owner, held := f.owners[key]
	if held && owner != clientID {
		return false, nil
	}
	f.owners[key] = clientID
	return true, nil
}

func (f *fakeLockClient) HasLock(_ context.Context, key, clientID string) (bool, error) {
	return f.owners[key] == clientID, nil
}

func TestReserveTicketSucceedsWhenAvailable(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateAvailable})
	locks := newFakeLockClient()
	svc := &Service{store: store, locks: locks}

	ok, err := svc.ReserveTicket(context.Background(), 1, "client-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ticket, _ := store.Get(context.Background(), 1)
	assert.Equal(t, StateReserved, ticket.State)
	assert.Equal(t, "client-a", ticket.SoldTo.String)
}

func TestReserveTicketFailsWhenLockHeldByOtherClient(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateAvailable})
	locks := newFakeLockClient()
	svc := &Service{store: store, locks: locks}

	ok, err := svc.ReserveTicket(context.Background(), 1, "client-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.ReserveTicket(context.Background(), 1, "client-b")
	require.NoError(t, err)
	assert.False(t, ok, "second client should be denied the lock")
}

func TestReserveTicketFailsForSoldTicket(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateSold, SoldTo: sql.NullString{String: "client-a", Valid: true}})
	locks := newFakeLockClient()
	svc := &Service{store: store, locks: locks}

	ok, err := svc.ReserveTicket(context.Background(), 1, "client-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookTicketSucceedsWhenReservedAndLockHeld(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateReserved, SoldTo: sql.NullString{String: "client-a", Valid: true}})
	locks := newFakeLockClient()
	locks.owners["ticket_lock_1"] = "client-a"
	svc := &Service{store: store, locks: locks}

	ok, err := svc.BookTicket(context.Background(), 1, "client-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ticket, _ := store.Get(context.Background(), 1)
	assert.Equal(t, StateSold, ticket.State)
}

func TestBookTicketFailsWithoutLock(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateReserved, SoldTo: sql.NullString{String: "client-a", Valid: true}})
	locks := newFakeLockClient()
	svc := &Service{store: store, locks: locks}

	ok, err := svc.BookTicket(context.Background(), 1, "client-a")
	require.NoError(t, err)
	assert.False(t, ok, "booking without holding the lock should fail")
}

func TestBookTicketFailsForDifferentOwner(t *testing.T) {
	store := newFakeStore(Ticket{ID: 1, State: StateReserved, SoldTo: sql.NullString{String: "client-a", Valid: true}})
	locks := newFakeLockClient()
	locks.owners["ticket_lock_1"] = "client-b"
	svc := &Service{store: store, locks: locks}

	ok, err := svc.BookTicket(context.Background(), 1, "client-b")
	require.NoError(t, err)
	assert.False(t, ok, "ticket sold_to doesn't match lock holder")
}

func TestAvailableTicketsListsOnlyAvailableState(t *testing.T) {
	store := newFakeStore(
		Ticket{ID: 1, State: StateAvailable},
		Ticket{ID: 2, State: StateSold},
		Ticket{ID: 3, State: StateAvailable},
	)
	svc := &Service{store: store, locks: newFakeLockClient()}

	ids, err := svc.AvailableTickets(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 3}, ids)
}

func TestInitializeSeedsAvailableTickets(t *testing.T) {
	store := newFakeStore()
	svc := &Service{store: store, locks: newFakeLockClient()}

	require.NoError(t, svc.Initialize(context.Background(), 5))

	ids, err := svc.AvailableTickets(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}
