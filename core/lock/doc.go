// Package lock provides optional, best-effort distributed locks backed by Redis.
//
// Order repair takes a per-order lock so that two concurrent runs do not both spend work on the same
// order. Correctness never depends on the lock: every repair write is guarded by unique constraints
// and check-before-act inside its own transaction. When no Redis address is configured the Noop
// locker is used.
package lock
