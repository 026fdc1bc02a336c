package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a row in a realtime table. ID and CreatedAt are assigned by the store on
// insert and never change afterwards.
type Record struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`       // Category, e.g. "String" or "Percussion"
	CreatedAt time.Time `json:"created_at"` // Millisecond precision, monotonic per table
}

// RecordDraft carries the caller-supplied fields of a record that has not been
// inserted yet.
type RecordDraft struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ChangeType identifies the kind of row-level mutation carried by a ChangeEvent.
type ChangeType string

const (
	// ChangeInsert is published after a record is inserted. New holds the record.
	ChangeInsert ChangeType = "INSERT"

	// ChangeUpdate is published after a record is replaced. New holds the new
	// version, Old the previous one.
	ChangeUpdate ChangeType = "UPDATE"

	// ChangeDelete is published after a record is removed. Old holds the record's
	// identity.
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is the change feed payload for a single committed mutation.
type ChangeEvent struct {
	Type            ChangeType `json:"type"`
	Schema          string     `json:"schema"`
	Table           string     `json:"table"`
	CommitTimestamp time.Time  `json:"commit_timestamp"`
	New             *Record    `json:"new,omitempty"`
	Old             *Record    `json:"old,omitempty"`
}

// BroadcastMessage is an ephemeral message sent on a broadcast channel.
// Payload is opaque to the store.
type BroadcastMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// PresenceMeta is the metadata a participant advertises while tracked on a channel.
type PresenceMeta struct {
	User       string    `json:"user"`
	OnlineAt   time.Time `json:"online_at"`
	LastSeenMs int64     `json:"last_seen_ms"` // Refreshed on every Track call
}

// PresenceState is a membership snapshot of a presence channel, keyed by participant key.
type PresenceState map[string]PresenceMeta

// DefaultSchema is reported in every ChangeEvent. The store has a single namespace.
const DefaultSchema = "public"

// Validate checks that a stored or received record is well formed.
func (r *Record) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("invalid record ID: must be > 0, got %d", r.ID)
	}

	if r.Name == "" {
		return fmt.Errorf("record name cannot be empty")
	}

	if r.Type == "" {
		return fmt.Errorf("record type cannot be empty")
	}

	return nil
}

// Validate checks that a draft can be inserted.
func (d RecordDraft) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("record name cannot be empty")
	}

	if d.Type == "" {
		return fmt.Errorf("record type cannot be empty")
	}

	return nil
}

// Validate checks if the ChangeType is a valid enum value.
func (ct ChangeType) Validate() error {
	switch ct {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return nil
	default:
		return fmt.Errorf("unknown change type: %q", ct)
	}
}

// Validate checks that the event carries the payload its type requires.
// INSERT and UPDATE need a valid New record; DELETE needs an Old record with an ID.
func (e *ChangeEvent) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}

	switch e.Type {
	case ChangeInsert, ChangeUpdate:
		if e.New == nil {
			return fmt.Errorf("%s event missing new record", e.Type)
		}
		if err := e.New.Validate(); err != nil {
			return fmt.Errorf("%s event has invalid new record: %w", e.Type, err)
		}
	case ChangeDelete:
		if e.Old == nil {
			return fmt.Errorf("%s event missing old record", e.Type)
		}
		if e.Old.ID <= 0 {
			return fmt.Errorf("%s event has invalid old record ID: %d", e.Type, e.Old.ID)
		}
	}

	return nil
}

// Keys returns the participant keys in the snapshot.
func (s PresenceState) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
