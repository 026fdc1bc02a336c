package tracker

import "github.com/dyluth/bandstand/pkg/realtime"

// Cache is the ordered local copy of a table. It is not safe for concurrent use;
// View serializes access.
type Cache struct {
	records []realtime.Record
}

// Replace discards the cache contents and takes a copy of records.
func (c *Cache) Replace(records []realtime.Record) {
	c.records = append(make([]realtime.Record, 0, len(records)), records...)
}

// Prepend puts r at the front.
func (c *Cache) Prepend(r realtime.Record) {
	c.records = append([]realtime.Record{r}, c.records...)
}

// Contains reports whether any entry has the given ID.
func (c *Cache) Contains(id int64) bool {
	for _, r := range c.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// ReplaceByID overwrites every entry with r.ID in place. Returns false if none matched.
func (c *Cache) ReplaceByID(r realtime.Record) bool {
	replaced := false
	for i := range c.records {
		if c.records[i].ID == r.ID {
			c.records[i] = r
			replaced = true
		}
	}
	return replaced
}

// RemoveByID drops every entry with the given ID, keeping the order of the rest.
// Returns false if none matched.
func (c *Cache) RemoveByID(id int64) bool {
	kept := c.records[:0]
	for _, r := range c.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(c.records)
	// Clear the tail so dropped records are not retained by the backing array
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = realtime.Record{}
	}
	c.records = kept
	return removed
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.records)
}

// Records returns a copy of the entries in cache order.
func (c *Cache) Records() []realtime.Record {
	return append(make([]realtime.Record, 0, len(c.records)), c.records...)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.records = nil
}
