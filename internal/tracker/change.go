package tracker

import (
	"errors"
	"fmt"

	"github.com/dyluth/bandstand/pkg/realtime"
)

// ErrMalformedChange is returned by DecodeChange for payloads that cannot be applied.
var ErrMalformedChange = errors.New("malformed change event")

// Change is a validated change feed event. It is one of Created, Updated or Deleted.
type Change interface {
	isChange()
}

// Created carries a newly inserted record.
type Created struct {
	Record realtime.Record
}

// Updated carries the new version of an existing record.
type Updated struct {
	Record realtime.Record
}

// Deleted carries the identity of a removed record.
type Deleted struct {
	ID int64
}

func (Created) isChange() {}
func (Updated) isChange() {}
func (Deleted) isChange() {}

// DecodeChange validates a wire event and converts it to a Change.
func DecodeChange(e realtime.ChangeEvent) (Change, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChange, err)
	}

	switch e.Type {
	case realtime.ChangeInsert:
		return Created{Record: *e.New}, nil
	case realtime.ChangeUpdate:
		return Updated{Record: *e.New}, nil
	case realtime.ChangeDelete:
		return Deleted{ID: e.Old.ID}, nil
	}

	// Unreachable: Validate rejects unknown types
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedChange, e.Type)
}
