package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// subscriptionBuffer is the capacity of the Events and Errors channels.
const subscriptionBuffer = 64

// Subscription represents an active Pub/Sub subscription delivering decoded values of T.
// Caller must call Close() when done to clean up resources.
type Subscription[T any] struct {
	events <-chan T
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of decoded events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription[T]) Events() <-chan T {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include undecodable payloads; the offending message is skipped and the
// subscription continues. Errors are dropped while the buffer is full.
func (s *Subscription[T]) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription[T]) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// decodeFunc turns a Pub/Sub message into a value. Returning deliver=false skips the
// message silently (e.g. a broadcast for a different event name).
type decodeFunc[T any] func(ctx context.Context, msg *redis.Message) (value T, deliver bool, err error)

// subscribe opens a Pub/Sub subscription on channel and pumps decoded values onto the
// returned Subscription. The subscription is confirmed by Redis before subscribe
// returns, so anything published afterwards is observed. If initial is non-nil its
// result is delivered as the first event.
func subscribe[T any](ctx context.Context, rdb *redis.Client, channel string, initial func(context.Context) (T, error), decode decodeFunc[T]) (*Subscription[T], error) {
	pubsub := rdb.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan T, subscriptionBuffer)
	errorsChan := make(chan error, subscriptionBuffer)

	subCtx, cancelFunc := context.WithCancel(ctx)

	if initial != nil {
		first, err := initial(subCtx)
		if err != nil {
			cancelFunc()
			pubsub.Close()
			return nil, err
		}
		eventsChan <- first
	}

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				value, deliver, err := decode(subCtx, msg)
				if err != nil {
					select {
					case errorsChan <- err:
					default:
					}
					continue
				}
				if !deliver {
					continue
				}

				select {
				case eventsChan <- value:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription[T]{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
