package filter

import (
	"path/filepath"
	"time"

	"github.com/dyluth/bandstand/pkg/realtime"
)

// Criteria defines filtering criteria for records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	Since    time.Time // Zero = no lower bound on created_at
	Until    time.Time // Zero = no upper bound on created_at
	TypeGlob string    // Glob pattern for the record type, empty = no filter
	NameGlob string    // Glob pattern for the record name, empty = no filter
}

// Matches returns true if the record matches all filter criteria.
func (c *Criteria) Matches(r realtime.Record) bool {
	if !c.Since.IsZero() && r.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && r.CreatedAt.After(c.Until) {
		return false
	}

	return globMatch(c.TypeGlob, r.Type) && globMatch(c.NameGlob, r.Name)
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.TypeGlob != "" ||
		c.NameGlob != ""
}

// Apply returns the records matching c, preserving order.
func (c *Criteria) Apply(records []realtime.Record) []realtime.Record {
	if !c.HasFilters() {
		return records
	}
	out := make([]realtime.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func globMatch(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	matched, err := filepath.Match(pattern, value)
	return err == nil && matched
}
