// Package sweeper implements a single periodic expiry-cleaner worker,
// modeled on the ticker-plus-context-cancellation shape of
// torua's HealthMonitor.Start/Stop. The source carried three near-duplicate
// cleaner scripts (expired_lock_cleaner.py twice, plus an ephemeral-nodes
// variant) that differ only in which registry they sweep; this package
// consolidates them into one worker parameterized by a Sweepable.
package sweeper
