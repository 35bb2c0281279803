// Package cache provides a process-wide in-memory TTL cache for per-user computed results.
//
// Features:
//
//   - Keys are scoped to an owner (user) so that all entries of a user can be dropped at once.
//   - Expired entries are removed lazily when observed, optional janitor sweeps the rest.
//   - Generation stamps allow rejecting writes computed before an invalidation.
//   - Cache-aside helper runs build functions on miss and writes results back with TTL.
//   - Allows logging, stats collection.
//   - Propagates context to allow better control of application components.
package cache
