// Package ticketing implements a small ticket-reservation service that
// exercises the named-lock contract end to end against a relational table:
// reserve acquires a per-ticket lock before mutating a row, book re-checks
// lock ownership before flipping the row from reserved to sold. Grounded on
// ticketing_service.py; the SQL schema and driver are otherwise out of scope
// of the locking contract this package demonstrates.
package ticketing
