// Package cache memoizes decoded segment audio for the lifetime of a
// session. Entries only leave through explicit invalidation or a full clear.
package cache
