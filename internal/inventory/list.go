// Package inventory prints the records of a realtime table without mounting a view.
package inventory

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/bandstand/internal/filter"
	"github.com/dyluth/bandstand/pkg/realtime"
)

// OutputFormat specifies how to format the record list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Store is the subset of the realtime client used by this package.
type Store interface {
	FetchRecords(ctx context.Context, table string) ([]realtime.Record, error)
	GetRecord(ctx context.Context, table string, id int64) (*realtime.Record, error)
}

// ListRecords fetches every record of table, applies criteria when given and writes
// the result to w, newest first. now is used for relative ages in the table.
func ListRecords(ctx context.Context, store Store, table string, format OutputFormat, criteria *filter.Criteria, w io.Writer, now time.Time) error {
	records, err := store.FetchRecords(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	if criteria != nil {
		records = criteria.Apply(records)
	}

	switch format {
	case OutputFormatDefault:
		if err := FormatTable(w, records, table, now); err != nil {
			return fmt.Errorf("failed to format table output: %w", err)
		}
	case OutputFormatJSONL:
		if err := FormatJSONL(w, records); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
