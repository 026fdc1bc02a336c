package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Send publishes an ephemeral broadcast on channel. Only subscribers connected at the
// time of the call receive it, including the sender's own subscriptions.
func (c *Client) Send(ctx context.Context, channel, event string, payload interface{}) error {
	if event == "" {
		return fmt.Errorf("broadcast event name cannot be empty")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	msg := BroadcastMessage{
		Event:   event,
		Payload: payloadJSON,
		SentAt:  c.now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	if err := c.rdb.Publish(ctx, BroadcastChannel(c.instanceName, channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}

	return nil
}

// SubscribeBroadcast subscribes to broadcasts on channel. Only messages whose event
// name equals event are delivered; an empty event or "*" delivers everything.
// Caller must call subscription.Close() when done.
func (c *Client) SubscribeBroadcast(ctx context.Context, channel, event string) (*Subscription[BroadcastMessage], error) {
	return subscribe(ctx, c.rdb, BroadcastChannel(c.instanceName, channel), nil,
		func(_ context.Context, msg *redis.Message) (BroadcastMessage, bool, error) {
			var bm BroadcastMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				return BroadcastMessage{}, false, fmt.Errorf("failed to unmarshal broadcast: %w", err)
			}
			if event != "" && event != "*" && bm.Event != event {
				return BroadcastMessage{}, false, nil
			}
			return bm, true, nil
		})
}
