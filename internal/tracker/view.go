package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/bandstand/pkg/realtime"
)

// ErrAlreadyMounted is returned by Mount when the view is not Unmounted.
var ErrAlreadyMounted = errors.New("view already mounted")

// untrackTimeout bounds the presence cleanup performed during Unmount.
const untrackTimeout = 2 * time.Second

// Phase is the lifecycle state of a View.
type Phase string

const (
	PhaseUnmounted  Phase = "unmounted"
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseLoadFailed Phase = "load_failed"
)

// Store is the subset of the realtime client a View needs.
type Store interface {
	Fetcher
	InsertRecords(ctx context.Context, table string, drafts ...realtime.RecordDraft) ([]realtime.Record, error)
	SubscribeChanges(ctx context.Context, table string) (*realtime.Subscription[realtime.ChangeEvent], error)
	SubscribeBroadcast(ctx context.Context, channel, event string) (*realtime.Subscription[realtime.BroadcastMessage], error)
	SubscribePresence(ctx context.Context, channel string) (*realtime.Subscription[realtime.PresenceState], error)
	Send(ctx context.Context, channel, event string, payload interface{}) error
	Track(ctx context.Context, channel, key string, meta realtime.PresenceMeta) error
	Untrack(ctx context.Context, channel, key string) error
}

// Options configures a View.
type Options struct {
	Instance          string // Used in log lines only
	Table             string
	Channel           string
	ActivityEvent     string
	AnnounceDelay     time.Duration // Zero disables the join announcement
	HeartbeatInterval time.Duration // Zero disables presence refresh
	DedupeInserts     bool
	Samples           []realtime.RecordDraft
}

// DefaultOptions mirrors the defaults of bandstand.yml.
func DefaultOptions() Options {
	return Options{
		Table:             "instruments",
		Channel:           "instruments-changes",
		ActivityEvent:     "user-activity",
		AnnounceDelay:     time.Second,
		HeartbeatInterval: 15 * time.Second,
		DedupeInserts:     true,
		Samples:           DefaultSamples(),
	}
}

// ViewState is an immutable copy of everything a renderer shows.
type ViewState struct {
	Phase        Phase             `json:"phase"`
	Records      []realtime.Record `json:"records"`
	OnlineUsers  int               `json:"online_users"`
	LastActivity string            `json:"last_activity"`
}

// View keeps a local mirror of one realtime table together with presence and activity
// state for a channel.
//
// Lifecycle: Unmounted → Loading → Ready | LoadFailed → Unmounted. Subscriptions are
// only held while Ready. All mutation happens on the view's event loop goroutine.
type View struct {
	store Store
	opts  Options

	lifecycle sync.Mutex // serializes Mount and Unmount

	mu          sync.RWMutex
	phase       Phase
	cache       Cache
	presence    Presence
	activity    Activity
	reconciler  *Reconciler
	presenceKey string

	changed chan struct{}

	cancel   context.CancelFunc
	loopDone chan struct{}
	tasks    sync.WaitGroup
	scope    *scope
}

// NewView creates an unmounted view over store.
func NewView(store Store, opts Options) *View {
	v := &View{
		store:   store,
		opts:    opts,
		phase:   PhaseUnmounted,
		changed: make(chan struct{}, 1),
	}
	v.reconciler = NewReconciler(&v.cache, &v.activity, opts.DedupeInserts)
	return v
}

// Changes signals after every state change. Signals coalesce: a receiver that falls
// behind sees one pending signal and should re-read Snapshot.
func (v *View) Changes() <-chan struct{} {
	return v.changed
}

// Snapshot returns a copy of the current view state.
func (v *View) Snapshot() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return ViewState{
		Phase:        v.phase,
		Records:      v.cache.Records(),
		OnlineUsers:  v.presence.Count(),
		LastActivity: v.activity.Message(),
	}
}

// Phase returns the current lifecycle phase.
func (v *View) Phase() Phase {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.phase
}

// PresenceKey returns the key this view is tracked under while mounted.
func (v *View) PresenceKey() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.presenceKey
}

// Mount subscribes to the change feed, broadcasts and presence, loads the snapshot and
// starts the event loop. Subscribing happens before the fetch so changes committed
// while the snapshot is in flight are buffered and applied afterwards.
//
// On any failure every acquired subscription is released, the view enters LoadFailed
// and the error is returned; a snapshot failure wraps ErrSnapshotFailed. The view stays
// usable for rendering in that state. Cancelling ctx stops the event loop.
func (v *View) Mount(ctx context.Context) error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	v.mu.Lock()
	if v.phase != PhaseUnmounted {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	v.resetLocked()
	v.phase = PhaseLoading
	v.presenceKey = NewPresenceKey()
	key := v.presenceKey
	v.mu.Unlock()
	v.notify()

	runCtx, cancel := context.WithCancel(ctx)
	sc := &scope{}

	fail := func(err error) error {
		cancel()
		if relErr := sc.release(); relErr != nil {
			log.Printf("[Tracker] Error releasing subscriptions: %v", relErr)
		}
		v.mu.Lock()
		v.phase = PhaseLoadFailed
		v.mu.Unlock()
		v.notify()
		log.Printf("[Tracker] Mount failed for table '%s': %v", v.opts.Table, err)
		return err
	}

	changes, err := v.store.SubscribeChanges(runCtx, v.opts.Table)
	if err != nil {
		return fail(fmt.Errorf("failed to subscribe to changes: %w", err))
	}
	sc.add(changes)

	broadcasts, err := v.store.SubscribeBroadcast(runCtx, v.opts.Channel, v.opts.ActivityEvent)
	if err != nil {
		return fail(fmt.Errorf("failed to subscribe to broadcasts: %w", err))
	}
	sc.add(broadcasts)

	presence, err := v.store.SubscribePresence(runCtx, v.opts.Channel)
	if err != nil {
		return fail(fmt.Errorf("failed to subscribe to presence: %w", err))
	}
	sc.add(presence)

	if err := v.store.Track(runCtx, v.opts.Channel, key, realtime.PresenceMeta{User: key}); err != nil {
		return fail(fmt.Errorf("failed to track presence: %w", err))
	}
	sc.addFunc(func() error {
		untrackCtx, cancelUntrack := context.WithTimeout(context.Background(), untrackTimeout)
		defer cancelUntrack()
		return v.store.Untrack(untrackCtx, v.opts.Channel, key)
	})

	records, err := NewLoader(v.store, v.opts.Table).Load(runCtx)
	if err != nil {
		return fail(err)
	}

	v.mu.Lock()
	v.cache.Replace(records)
	v.reconciler.Seed(records)
	v.phase = PhaseReady
	v.mu.Unlock()
	v.notify()

	logEvent(v.opts.Instance, "snapshot_loaded", map[string]interface{}{
		"table":   v.opts.Table,
		"records": len(records),
	})

	v.cancel = cancel
	v.scope = sc
	v.loopDone = make(chan struct{})

	go v.run(runCtx, v.loopDone, changes, broadcasts, presence)

	return nil
}

// Unmount stops the event loop, cancels the pending announcement, untracks presence,
// closes every subscription and discards all view state. Safe to call repeatedly and
// in any phase.
func (v *View) Unmount() error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	if v.Phase() == PhaseUnmounted {
		return nil
	}

	if v.cancel != nil {
		v.cancel()
	}
	if v.loopDone != nil {
		<-v.loopDone
	}
	v.tasks.Wait()

	var err error
	if v.scope != nil {
		err = v.scope.release()
	}

	v.cancel = nil
	v.loopDone = nil
	v.scope = nil

	v.mu.Lock()
	v.resetLocked()
	v.phase = PhaseUnmounted
	v.presenceKey = ""
	v.mu.Unlock()
	v.notify()

	if err != nil {
		return fmt.Errorf("failed to release subscriptions: %w", err)
	}
	return nil
}

// AddSample inserts a random sample record and broadcasts who added what. Nothing is
// applied locally; the insert reaches the cache through the change feed.
func (v *View) AddSample(ctx context.Context) (realtime.Record, error) {
	draft := PickSample(v.opts.Samples)

	recs, err := v.store.InsertRecords(ctx, v.opts.Table, draft)
	if err != nil {
		log.Printf("[Tracker] Error adding instrument: %v", err)
		return realtime.Record{}, fmt.Errorf("failed to add instrument: %w", err)
	}

	if err := v.store.Send(ctx, v.opts.Channel, v.opts.ActivityEvent, ActivityPayload{
		Message: sampleAddedMessage(draft.Name),
	}); err != nil {
		log.Printf("[Tracker] Error broadcasting activity: %v", err)
		return recs[0], fmt.Errorf("failed to broadcast activity: %w", err)
	}

	return recs[0], nil
}

// run is the view's event loop. It owns every mutation of the cache, presence and
// activity state until ctx is cancelled.
func (v *View) run(
	ctx context.Context,
	done chan<- struct{},
	changes *realtime.Subscription[realtime.ChangeEvent],
	broadcasts *realtime.Subscription[realtime.BroadcastMessage],
	presence *realtime.Subscription[realtime.PresenceState],
) {
	defer close(done)

	changeEvents, changeErrors := changes.Events(), changes.Errors()
	broadcastEvents, broadcastErrors := broadcasts.Events(), broadcasts.Errors()
	presenceEvents, presenceErrors := presence.Events(), presence.Errors()

	var announceC <-chan time.Time
	if v.opts.AnnounceDelay > 0 {
		announce := time.NewTimer(v.opts.AnnounceDelay)
		defer announce.Stop()
		announceC = announce.C
	}

	var heartbeatC <-chan time.Time
	if v.opts.HeartbeatInterval > 0 {
		heartbeat := time.NewTicker(v.opts.HeartbeatInterval)
		defer heartbeat.Stop()
		heartbeatC = heartbeat.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-changeEvents:
			if !ok {
				log.Printf("[Tracker] Change feed closed")
				changeEvents = nil
				continue
			}
			v.handleChange(event)

		case msg, ok := <-broadcastEvents:
			if !ok {
				log.Printf("[Tracker] Broadcast subscription closed")
				broadcastEvents = nil
				continue
			}
			v.handleBroadcast(msg)

		case state, ok := <-presenceEvents:
			if !ok {
				log.Printf("[Tracker] Presence subscription closed")
				presenceEvents = nil
				continue
			}
			v.mu.Lock()
			count := v.presence.Sync(state)
			v.mu.Unlock()
			v.notify()
			log.Printf("[Tracker] Presence sync: %d online", count)

		case <-announceC:
			announceC = nil
			v.goTask(ctx, func(ctx context.Context) {
				if err := v.store.Send(ctx, v.opts.Channel, v.opts.ActivityEvent, ActivityPayload{Message: JoinAnnouncement}); err != nil {
					log.Printf("[Tracker] Error sending join announcement: %v", err)
				}
			})

		case <-heartbeatC:
			key := v.PresenceKey()
			v.goTask(ctx, func(ctx context.Context) {
				if err := v.store.Track(ctx, v.opts.Channel, key, realtime.PresenceMeta{User: key}); err != nil {
					log.Printf("[Tracker] Error refreshing presence: %v", err)
				}
			})

		case err, ok := <-changeErrors:
			if !ok {
				changeErrors = nil
				continue
			}
			log.Printf("[Tracker] Change feed error: %v", err)

		case err, ok := <-broadcastErrors:
			if !ok {
				broadcastErrors = nil
				continue
			}
			log.Printf("[Tracker] Broadcast error: %v", err)

		case err, ok := <-presenceErrors:
			if !ok {
				presenceErrors = nil
				continue
			}
			log.Printf("[Tracker] Presence error: %v", err)
		}
	}
}

func (v *View) handleChange(event realtime.ChangeEvent) {
	change, err := DecodeChange(event)
	if err != nil {
		log.Printf("[Tracker] Dropping change event: %v", err)
		return
	}

	v.mu.Lock()
	modified := v.reconciler.Apply(change)
	size := v.cache.Len()
	v.mu.Unlock()
	v.notify()

	logEvent(v.opts.Instance, "change_applied", map[string]interface{}{
		"table":    event.Table,
		"type":     string(event.Type),
		"modified": modified,
		"size":     size,
	})
}

func (v *View) handleBroadcast(msg realtime.BroadcastMessage) {
	var payload ActivityPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Message == "" {
		log.Printf("[Tracker] Dropping activity broadcast without a message (event '%s')", msg.Event)
		return
	}

	v.mu.Lock()
	v.activity.Set(payload.Message)
	v.mu.Unlock()
	v.notify()

	log.Printf("[Tracker] User activity: %s", payload.Message)
}

// goTask runs f on its own goroutine; Unmount waits for it after cancelling ctx.
func (v *View) goTask(ctx context.Context, f func(context.Context)) {
	v.tasks.Add(1)
	go func() {
		defer v.tasks.Done()
		f(ctx)
	}()
}

func (v *View) notify() {
	select {
	case v.changed <- struct{}{}:
	default:
	}
}

func (v *View) resetLocked() {
	v.cache.Reset()
	v.reconciler.Seed(nil)
	v.presence.Leave()
	v.activity.Reset()
}
