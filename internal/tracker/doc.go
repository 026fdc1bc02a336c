// Package tracker mirrors a realtime table into a local view and keeps it in sync.
//
// A View runs the snapshot loader once, then applies the change feed, presence
// snapshots and activity broadcasts from a single event loop. The cache is a plain
// ordered slice: the snapshot arrives newest first and later inserts are prepended
// without re-sorting. Updates and deletes are keyed by record ID and therefore
// idempotent; inserts are de-duplicated by ID unless compatibility mode is selected.
package tracker
