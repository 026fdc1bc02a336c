package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// presenceEvent is published on the presence events channel after every membership
// change. Subscribers re-read the full state rather than trusting the delta.
type presenceEvent struct {
	Event string `json:"event"` // "join" or "leave"
	Key   string `json:"key"`
}

// Track advertises key as present on channel, or refreshes it if already tracked.
// LastSeenMs is stamped from the client clock; OnlineAt defaults to now.
func (c *Client) Track(ctx context.Context, channel, key string, meta PresenceMeta) error {
	if key == "" {
		return fmt.Errorf("presence key cannot be empty")
	}

	now := c.now().UTC()
	if meta.OnlineAt.IsZero() {
		meta.OnlineAt = now
	}
	meta.LastSeenMs = now.UnixMilli()

	raw, err := encodePresenceMeta(meta)
	if err != nil {
		return err
	}

	if err := c.rdb.HSet(ctx, PresenceKey(c.instanceName, channel), key, raw).Err(); err != nil {
		return fmt.Errorf("failed to write presence: %w", err)
	}

	return c.publishPresence(ctx, channel, presenceEvent{Event: "join", Key: key})
}

// Untrack removes key from channel's presence. Untracking an unknown key is a no-op
// apart from the sync notification.
func (c *Client) Untrack(ctx context.Context, channel, key string) error {
	if err := c.rdb.HDel(ctx, PresenceKey(c.instanceName, channel), key).Err(); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}

	return c.publishPresence(ctx, channel, presenceEvent{Event: "leave", Key: key})
}

// PresenceState returns the current membership of channel. Entries that have not been
// refreshed within the presence TTL are pruned from Redis and omitted; entries that
// cannot be decoded are omitted. The prune is a WATCH transaction, so an entry
// refreshed after the read is re-evaluated instead of deleted.
func (c *Client) PresenceState(ctx context.Context, channel string) (PresenceState, error) {
	key := PresenceKey(c.instanceName, channel)

	var state PresenceState
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read presence: %w", err)
		}

		nowMs := c.now().UnixMilli()
		state = make(PresenceState, len(raw))
		var stale []string

		for participant, value := range raw {
			meta, err := decodePresenceMeta(value)
			if err != nil {
				continue
			}
			if c.presenceTTL > 0 && nowMs-meta.LastSeenMs > c.presenceTTL.Milliseconds() {
				stale = append(stale, participant)
				continue
			}
			state[participant] = meta
		}

		if len(stale) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, stale...)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to prune stale presence: %w", err)
		}
		return err
	}

	if err := c.watchRetry(ctx, txf, key); err != nil {
		return nil, err
	}

	return state, nil
}

// SubscribePresence subscribes to membership snapshots of channel. The state at
// subscribe time is delivered first; a fresh snapshot follows every join or leave.
// Caller must call subscription.Close() when done.
func (c *Client) SubscribePresence(ctx context.Context, channel string) (*Subscription[PresenceState], error) {
	fetch := func(ctx context.Context) (PresenceState, error) {
		return c.PresenceState(ctx, channel)
	}

	return subscribe(ctx, c.rdb, PresenceEventsChannel(c.instanceName, channel), fetch,
		func(ctx context.Context, _ *redis.Message) (PresenceState, bool, error) {
			state, err := fetch(ctx)
			if err != nil {
				return nil, false, err
			}
			return state, true, nil
		})
}

func (c *Client) publishPresence(ctx context.Context, channel string, event presenceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	if err := c.rdb.Publish(ctx, PresenceEventsChannel(c.instanceName, channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish presence event: %w", err)
	}

	return nil
}
