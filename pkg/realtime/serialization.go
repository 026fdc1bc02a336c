package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Serialization helpers for converting between Go structs and Redis hashes.
//
// Records are stored as flat hashes; created_at is kept as Unix milliseconds so the
// hash and the ordering ZSET agree on the same value.

// RecordToHash converts a Record to a Redis hash.
func RecordToHash(r *Record) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"name":          r.Name,
		"type":          r.Type,
		"created_at_ms": r.CreatedAt.UnixMilli(),
	}
}

// HashToRecord converts a Redis hash back to a Record.
func HashToRecord(hash map[string]string) (*Record, error) {
	id, err := strconv.ParseInt(hash["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	return &Record{
		ID:        id,
		Name:      hash["name"],
		Type:      hash["type"],
		CreatedAt: time.UnixMilli(createdAtMs).UTC(),
	}, nil
}

// encodePresenceMeta JSON-encodes presence metadata for storage in the presence hash.
func encodePresenceMeta(meta PresenceMeta) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal presence meta: %w", err)
	}
	return string(data), nil
}

// decodePresenceMeta reverses encodePresenceMeta.
func decodePresenceMeta(raw string) (PresenceMeta, error) {
	var meta PresenceMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return PresenceMeta{}, fmt.Errorf("failed to unmarshal presence meta: %w", err)
	}
	return meta, nil
}
