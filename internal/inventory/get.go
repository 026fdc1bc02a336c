package inventory

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/bandstand/pkg/realtime"
)

// GetRecord retrieves a single record by ID and writes it as pretty-printed JSON to w.
func GetRecord(ctx context.Context, store Store, table string, id int64, w io.Writer) error {
	record, err := store.GetRecord(ctx, table, id)
	if err != nil {
		if realtime.IsNotFound(err) {
			return &RecordNotFoundError{Table: table, ID: id}
		}
		return fmt.Errorf("failed to fetch record: %w", err)
	}

	if err := FormatSingleJSON(w, record); err != nil {
		return fmt.Errorf("failed to format record: %w", err)
	}

	return nil
}

// RecordNotFoundError represents a specific "record not found" error.
type RecordNotFoundError struct {
	Table string
	ID    int64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %d not found in table '%s'", e.ID, e.Table)
}

// IsNotFound returns true if the error is a RecordNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*RecordNotFoundError)
	return ok
}
