package ticketing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// lockTTL is the fixed expiry used for every per-ticket lock, matching the
// source's hardcoded self.expiry = 10.
const lockTTL = 10 * time.Second

// ticketStore is the subset of *Store's methods Service depends on, broken
// out so tests can swap in a fake without a real Postgres connection.
type ticketStore interface {
	Get(ctx context.Context, ticketID int) (Ticket, error)
	Available(ctx context.Context) ([]int, error)
	SetSoldToAndState(ctx context.Context, ticketID int, soldTo string, state TicketState) error
	SetState(ctx context.Context, ticketID int, state TicketState) error
	Init(ctx context.Context, count int) error
}

// lockClient is the subset of *LockClient's methods Service depends on.
type lockClient interface {
	AcquireLock(ctx context.Context, key, clientID string, ttl time.Duration) (bool, error)
	HasLock(ctx context.Context, key, clientID string) (bool, error)
}

// Service reserves and books tickets, using a lockClient to enforce one
// reservation in flight per ticket at a time.
type Service struct {
	store  ticketStore
	locks  lockClient
	logger *zap.SugaredLogger
}

// NewService wires a Store (the tickets table) to a LockClient (a running
// cmd/lockserver). logger may be nil.
func NewService(store *Store, locks *LockClient, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, locks: locks, logger: logger}
}

func lockKeyFor(ticketID int) string {
	return fmt.Sprintf("ticket_lock_%d", ticketID)
}

// ReserveTicket acquires ticket_lock_{id} for clientID, then — only if the
// lock was granted — flips the ticket from available or reserved to
// reserved, with sold_to set to clientID. A reserved ticket's current sold_to
// is not checked; holding the lock is the only guard.
func (s *Service) ReserveTicket(ctx context.Context, ticketID int, clientID string) (bool, error) {
	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return false, err
	}

	acquired, err := s.locks.AcquireLock(ctx, lockKeyFor(ticketID), clientID, lockTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		if s.logger != nil {
			s.logger.Infow("reserve denied, lock held by another client", "ticket_id", ticketID, "client_id", clientID)
		}
		return false, nil
	}

	if ticket.State != StateAvailable && ticket.State != StateReserved {
		return false, nil
	}

	if err := s.store.SetSoldToAndState(ctx, ticketID, clientID, StateReserved); err != nil {
		return false, err
	}
	return true, nil
}

// BookTicket re-checks that clientID still holds ticket_lock_{id}, then
// flips a reserved ticket owned by clientID to sold.
func (s *Service) BookTicket(ctx context.Context, ticketID int, clientID string) (bool, error) {
	hasLock, err := s.locks.HasLock(ctx, lockKeyFor(ticketID), clientID)
	if err != nil {
		return false, err
	}
	if !hasLock {
		return false, nil
	}

	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if ticket.State != StateReserved || !ticket.SoldTo.Valid || ticket.SoldTo.String != clientID {
		return false, nil
	}

	if err := s.store.SetState(ctx, ticketID, StateSold); err != nil {
		return false, err
	}
	return true, nil
}

// AvailableTickets lists every ticket id currently in the available state.
func (s *Service) AvailableTickets(ctx context.Context) ([]int, error) {
	return s.store.Available(ctx)
}

// Initialize (re)creates the ticket schema and seeds it with count
// available tickets.
func (s *Service) Initialize(ctx context.Context, count int) error {
	return s.store.Init(ctx, count)
}
