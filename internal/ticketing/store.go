package ticketing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// TicketState mirrors the Postgres ticket_state enum.
type TicketState string

const (
	StateAvailable TicketState = "available"
	StateReserved  TicketState = "reserved"
	StateSold      TicketState = "sold"
)

// Ticket is a single row of the tickets table.
type Ticket struct {
	ID     int
	SoldTo sql.NullString
	State  TicketState
}

// ErrTicketNotFound is returned when a ticket_id has no matching row.
var ErrTicketNotFound = errors.New("ticketing: ticket not found")

// Store wraps a database/sql.DB over the Postgres tickets table, opened
// with the lib/pq driver.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres connection pool with the given DSN. Connection
// is lazy: the first query establishes it, per database/sql's usual
// contract.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ticketing: open db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init (re)creates the ticket_state enum and tickets table and seeds it with
// count available tickets, mirroring init_ticketing_service_db's fresh-start
// semantics: existing data is dropped.
func (s *Store) Init(ctx context.Context, count int) error {
	stmts := []string{
		`DROP TABLE IF EXISTS tickets`,
		`DROP TYPE IF EXISTS ticket_state`,
		`CREATE TYPE ticket_state AS ENUM ('available', 'reserved', 'sold')`,
		`CREATE TABLE IF NOT EXISTS tickets (
			ticket_id SERIAL PRIMARY KEY,
			sold_to VARCHAR(50),
			state ticket_state NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ticketing: init schema: %w", err)
		}
	}
	for i := 0; i < count; i++ {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO tickets (state) VALUES ($1)`, StateAvailable); err != nil {
			return fmt.Errorf("ticketing: seed ticket %d: %w", i, err)
		}
	}
	return nil
}

// Get fetches a single ticket row by id.
func (s *Store) Get(ctx context.Context, ticketID int) (Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ticket_id, sold_to, state FROM tickets WHERE ticket_id = $1`, ticketID)
	var t Ticket
	if err := row.Scan(&t.ID, &t.SoldTo, &t.State); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, fmt.Errorf("ticketing: get ticket %d: %w", ticketID, err)
	}
	return t, nil
}

// Available lists the ids of every ticket currently in the available state.
func (s *Store) Available(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticket_id FROM tickets WHERE state = $1 ORDER BY ticket_id`, StateAvailable)
	if err != nil {
		return nil, fmt.Errorf("ticketing: list available: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ticketing: scan available: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetSoldToAndState updates a ticket's owner and state in one statement.
func (s *Store) SetSoldToAndState(ctx context.Context, ticketID int, soldTo string, state TicketState) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET sold_to = $1, state = $2 WHERE ticket_id = $3`, soldTo, state, ticketID)
	if err != nil {
		return fmt.Errorf("ticketing: update ticket %d: %w", ticketID, err)
	}
	return nil
}

// SetState updates only a ticket's state, leaving sold_to untouched.
func (s *Store) SetState(ctx context.Context, ticketID int, state TicketState) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tickets SET state = $1 WHERE ticket_id = $2`, state, ticketID)
	if err != nil {
		return fmt.Errorf("ticketing: update ticket %d state: %w", ticketID, err)
	}
	return nil
}
