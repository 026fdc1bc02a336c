package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic-lock retries when concurrent writers race on a table.
const maxTxRetries = 16

// Client provides instance-scoped access to the realtime store.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
	now          func() time.Time
	presenceTTL  time.Duration
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithClock overrides the clock used to stamp created_at, broadcast and presence times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithPresenceTTL sets how long a presence entry survives without a refresh.
// Zero disables pruning.
func WithPresenceTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.presenceTTL = ttl
	}
}

// NewClient creates a new realtime client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Bandstand instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string, opts ...Option) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	c := &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// InstanceName returns the namespace this client operates in.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InsertRecords inserts one or more records into table and publishes an INSERT event
// for each. IDs come from the table's sequence and created_at is strictly increasing
// across inserts on the same table. Returns the stored records in insertion order.
func (c *Client) InsertRecords(ctx context.Context, table string, drafts ...RecordDraft) ([]Record, error) {
	if table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no records to insert")
	}
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record at index %d: %w", i, err)
		}
	}

	inserted := make([]Record, 0, len(drafts))
	for _, d := range drafts {
		rec, err := c.insertOne(ctx, table, d)
		if err != nil {
			return inserted, err
		}
		inserted = append(inserted, *rec)

		if err := c.publishChange(ctx, table, ChangeInsert, rec, nil); err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

// insertOne allocates an ID and a monotonic created_at and writes the record hash and
// index entry atomically.
func (c *Client) insertOne(ctx context.Context, table string, d RecordDraft) (*Record, error) {
	id, err := c.rdb.Incr(ctx, SequenceKey(c.instanceName, table)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate record ID: %w", err)
	}

	lastKey := LastCreatedAtKey(c.instanceName, table)
	var rec *Record

	txf := func(tx *redis.Tx) error {
		last, err := tx.Get(ctx, lastKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		createdMs := c.now().UnixMilli()
		if createdMs <= last {
			createdMs = last + 1
		}

		rec = &Record{
			ID:        id,
			Name:      d.Name,
			Type:      d.Type,
			CreatedAt: time.UnixMilli(createdMs).UTC(),
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, lastKey, createdMs, 0)
			pipe.HSet(ctx, RecordKey(c.instanceName, table, id), RecordToHash(rec))
			pipe.ZAdd(ctx, CreatedAtIndexKey(c.instanceName, table), redis.Z{
				Score:  CreatedAtScore(createdMs),
				Member: id,
			})
			return nil
		})
		return err
	}

	if err := c.watchRetry(ctx, txf, lastKey); err != nil {
		return nil, fmt.Errorf("failed to write record to Redis: %w", err)
	}

	return rec, nil
}

// FetchRecords returns every record in table ordered by created_at descending
// (newest first, ties broken by descending ID). An empty table yields an empty slice.
func (c *Client) FetchRecords(ctx context.Context, table string) ([]Record, error) {
	ids, err := c.rdb.ZRevRange(ctx, CreatedAtIndexKey(c.instanceName, table), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read table index: %w", err)
	}

	records := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range ids {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt index member %q: %w", raw, err)
			}
			cmds = append(cmds, pipe.HGetAll(ctx, RecordKey(c.instanceName, table, id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	for _, cmd := range cmds {
		hash := cmd.Val()
		// Index entries can briefly outlive a concurrently deleted hash
		if len(hash) == 0 {
			continue
		}
		rec, err := HashToRecord(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize record: %w", err)
		}
		records = append(records, *rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

// GetRecord retrieves a record by ID.
// Returns (nil, redis.Nil) if the record doesn't exist. Use IsNotFound() to check.
func (c *Client) GetRecord(ctx context.Context, table string, id int64) (*Record, error) {
	hash, err := c.rdb.HGetAll(ctx, RecordKey(c.instanceName, table, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}

	if len(hash) == 0 {
		return nil, redis.Nil
	}

	rec, err := HashToRecord(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}

	return rec, nil
}

// UpdateRecord replaces the name and type of an existing record and publishes an
// UPDATE event carrying both versions. ID and created_at are preserved.
// Returns redis.Nil if the record doesn't exist.
func (c *Client) UpdateRecord(ctx context.Context, table string, id int64, d RecordDraft) (*Record, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}

	key := RecordKey(c.instanceName, table, id)
	var before, after *Record

	txf := func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(hash) == 0 {
			return redis.Nil
		}

		before, err = HashToRecord(hash)
		if err != nil {
			return fmt.Errorf("failed to deserialize record: %w", err)
		}

		updated := *before
		updated.Name = d.Name
		updated.Type = d.Type
		after = &updated

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, RecordToHash(after))
			return nil
		})
		return err
	}

	if err := c.watchRetry(ctx, txf, key); err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update record in Redis: %w", err)
	}

	if err := c.publishChange(ctx, table, ChangeUpdate, after, before); err != nil {
		return after, err
	}

	return after, nil
}

// DeleteRecord removes a record and publishes a DELETE event whose Old payload
// carries the removed record. Returns redis.Nil if the record doesn't exist.
func (c *Client) DeleteRecord(ctx context.Context, table string, id int64) error {
	key := RecordKey(c.instanceName, table, id)
	var before *Record

	txf := func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(hash) == 0 {
			return redis.Nil
		}

		before, err = HashToRecord(hash)
		if err != nil {
			return fmt.Errorf("failed to deserialize record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, CreatedAtIndexKey(c.instanceName, table), id)
			return nil
		})
		return err
	}

	if err := c.watchRetry(ctx, txf, key); err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete record from Redis: %w", err)
	}

	return c.publishChange(ctx, table, ChangeDelete, nil, before)
}

// watchRetry runs an optimistic transaction, retrying when a watched key changes.
func (c *Client) watchRetry(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = c.rdb.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// publishChange publishes a change feed event for table.
func (c *Client) publishChange(ctx context.Context, table string, kind ChangeType, newRec, oldRec *Record) error {
	event := ChangeEvent{
		Type:            kind,
		Schema:          DefaultSchema,
		Table:           table,
		CommitTimestamp: c.now().UTC(),
		New:             newRec,
		Old:             oldRec,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := c.rdb.Publish(ctx, ChangesChannel(c.instanceName, table), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

// SubscribeChanges subscribes to the change feed of table. Every INSERT, UPDATE and
// DELETE committed after the call returns is delivered; payloads that are not valid
// JSON are reported on Errors() and skipped. Semantic validation is left to the caller.
// Caller must call subscription.Close() when done.
func (c *Client) SubscribeChanges(ctx context.Context, table string) (*Subscription[ChangeEvent], error) {
	return subscribe(ctx, c.rdb, ChangesChannel(c.instanceName, table), nil,
		func(_ context.Context, msg *redis.Message) (ChangeEvent, bool, error) {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				return ChangeEvent{}, false, fmt.Errorf("failed to unmarshal change event: %w", err)
			}
			return event, true, nil
		})
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetRecord, UpdateRecord or DeleteRecord hit a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
