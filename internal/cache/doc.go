// Package cache provides an in-process TTL cache with a FIFO size bound.
//
// Entries expire lazily: an expired entry is removed when it is next read,
// not by a background sweeper. When the cache is full, inserting a new key
// evicts the oldest-inserted entry. Overwriting an existing key replaces the
// value and resets its TTL but never evicts and never changes the key's
// insertion position.
package cache
