package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dyluth/bandstand/pkg/realtime"
)

var (
	// ErrSnapshotFailed wraps any error from the initial snapshot fetch.
	ErrSnapshotFailed = errors.New("snapshot load failed")

	// ErrSnapshotAlreadyLoaded is returned when a Loader is asked to load twice.
	ErrSnapshotAlreadyLoaded = errors.New("snapshot already loaded")
)

// Fetcher is the query half of the store used by the snapshot loader.
type Fetcher interface {
	FetchRecords(ctx context.Context, table string) ([]realtime.Record, error)
}

// Loader fetches a table snapshot exactly once.
type Loader struct {
	fetcher Fetcher
	table   string
	used    atomic.Bool
}

// NewLoader returns a Loader for table.
func NewLoader(fetcher Fetcher, table string) *Loader {
	return &Loader{fetcher: fetcher, table: table}
}

// Load fetches every record newest first. It can only be called once; a failed load
// is not retried.
func (l *Loader) Load(ctx context.Context) ([]realtime.Record, error) {
	if !l.used.CompareAndSwap(false, true) {
		return nil, ErrSnapshotAlreadyLoaded
	}

	records, err := l.fetcher.FetchRecords(ctx, l.table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
	}

	if records == nil {
		records = []realtime.Record{}
	}

	return records, nil
}
