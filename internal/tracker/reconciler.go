package tracker

import "github.com/dyluth/bandstand/pkg/realtime"

// Reconciler applies changes to a Cache and records each one in Activity.
type Reconciler struct {
	cache    *Cache
	activity *Activity

	// dedupeInserts makes Created idempotent: a record whose ID is already cached is
	// replaced in place instead of being prepended a second time.
	dedupeInserts bool

	// snapshotIDs holds the IDs loaded by the snapshot whose insert events may still
	// be buffered in the change feed. Each absorbs one Created in either mode.
	snapshotIDs map[int64]struct{}
}

// NewReconciler returns a Reconciler writing into cache and activity.
func NewReconciler(cache *Cache, activity *Activity, dedupeInserts bool) *Reconciler {
	return &Reconciler{
		cache:         cache,
		activity:      activity,
		dedupeInserts: dedupeInserts,
	}
}

// Seed records the IDs of a freshly loaded snapshot. A nil slice clears them.
func (r *Reconciler) Seed(records []realtime.Record) {
	r.snapshotIDs = make(map[int64]struct{}, len(records))
	for _, rec := range records {
		r.snapshotIDs[rec.ID] = struct{}{}
	}
}

// Apply merges a single change. It reports whether the cache contents changed;
// the activity message is overwritten regardless.
func (r *Reconciler) Apply(change Change) bool {
	switch c := change.(type) {
	case Created:
		r.activity.Set(addedMessage(c.Record.Name))
		if _, ok := r.snapshotIDs[c.Record.ID]; ok {
			delete(r.snapshotIDs, c.Record.ID)
			return r.cache.ReplaceByID(c.Record)
		}
		if r.dedupeInserts && r.cache.Contains(c.Record.ID) {
			return r.cache.ReplaceByID(c.Record)
		}
		r.cache.Prepend(c.Record)
		return true

	case Updated:
		r.activity.Set(updatedMessage(c.Record.Name))
		return r.cache.ReplaceByID(c.Record)

	case Deleted:
		r.activity.Set(deletedMessage())
		return r.cache.RemoveByID(c.ID)
	}

	return false
}
