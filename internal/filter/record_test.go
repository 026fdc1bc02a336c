package filter

import (
	"testing"
	"time"

	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/stretchr/testify/assert"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCriteria_Matches(t *testing.T) {
	violin := realtime.Record{ID: 1, Name: "Violin", Type: "String", CreatedAt: base}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{name: "no filters", criteria: Criteria{}, want: true},
		{name: "since before", criteria: Criteria{Since: base.Add(-time.Minute)}, want: true},
		{name: "since equal is inclusive", criteria: Criteria{Since: base}, want: true},
		{name: "since after", criteria: Criteria{Since: base.Add(time.Minute)}, want: false},
		{name: "until after", criteria: Criteria{Until: base.Add(time.Minute)}, want: true},
		{name: "until before", criteria: Criteria{Until: base.Add(-time.Minute)}, want: false},
		{name: "type exact", criteria: Criteria{TypeGlob: "String"}, want: true},
		{name: "type glob", criteria: Criteria{TypeGlob: "Str*"}, want: true},
		{name: "type mismatch", criteria: Criteria{TypeGlob: "Brass"}, want: false},
		{name: "name glob", criteria: Criteria{NameGlob: "*lin"}, want: true},
		{name: "invalid glob never matches", criteria: Criteria{NameGlob: "[", TypeGlob: "String"}, want: false},
		{name: "all ANDed", criteria: Criteria{TypeGlob: "String", NameGlob: "Cello"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(violin))
		})
	}
}

func TestCriteria_Apply(t *testing.T) {
	records := []realtime.Record{
		{ID: 3, Name: "Trumpet", Type: "Brass", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 2, Name: "Violin", Type: "String", CreatedAt: base.Add(time.Minute)},
		{ID: 1, Name: "Cello", Type: "String", CreatedAt: base},
	}

	c := Criteria{}
	assert.False(t, c.HasFilters())
	assert.Equal(t, records, c.Apply(records))

	c = Criteria{TypeGlob: "String"}
	assert.True(t, c.HasFilters())
	got := c.Apply(records)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}
