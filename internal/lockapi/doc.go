// Package lockapi implements the flat named-lock registry: one owner per
// key, fenced by client identifier and expired lazily against the wall
// clock.
//
// # State machine
//
// Per key:
//
//	absent --acquire--> locked(owner=c, t=now, ttl)
//	locked --acquire by same c--> locked(owner=c, t:=now, ttl)        (renew)
//	locked --acquire by other c, not expired--> ErrLockAlreadyHeld
//	locked --acquire by other c, expired--> locked(owner=c', t:=now)  (steal)
//	locked --now-t > ttl--> expired (lazy; observable on any read)
//	locked --release(c)--> absent        (only if requester == owner)
//	expired --sweeper--> absent
//
// Status is always recomputed against the clock on read, so a caller can
// observe an expired lock even between Sweep ticks — the sweeper only
// garbage-collects what a lazy read would already report.
package lockapi
