package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInstance = "test-instance"
	testTable    = "instruments"
	testChannel  = "instruments-changes"
)

// setupTestStore creates a realtime client connected to a miniredis instance
func setupTestStore(t *testing.T) (*realtime.Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := realtime.NewClient(&redis.Options{Addr: mr.Addr()}, testInstance)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// testOptions disables timers so tests only see the events they cause.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Instance = testInstance
	opts.AnnounceDelay = 0
	opts.HeartbeatInterval = 0
	return opts
}

func mountView(t *testing.T, store Store, opts Options) *View {
	t.Helper()
	v := NewView(store, opts)
	require.NoError(t, v.Mount(context.Background()))
	t.Cleanup(func() { v.Unmount() })
	return v
}

func waitForState(t *testing.T, v *View, cond func(ViewState) bool) ViewState {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		state := v.Snapshot()
		if cond(state) {
			return state
		}
		select {
		case <-v.Changes():
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timeout waiting for view state, last state: %+v", state)
		}
	}
}

func insert(t *testing.T, client *realtime.Client, name, typ string) realtime.Record {
	t.Helper()
	recs, err := client.InsertRecords(context.Background(), testTable, realtime.RecordDraft{Name: name, Type: typ})
	require.NoError(t, err)
	return recs[0]
}

// failingStore serves everything from the embedded client except the snapshot.
type failingStore struct {
	*realtime.Client
	err error
}

func (f *failingStore) FetchRecords(ctx context.Context, table string) ([]realtime.Record, error) {
	return nil, f.err
}

// racingStore inserts a record while the snapshot is being fetched, so the insert
// lands in the snapshot and in the buffered change feed.
type racingStore struct {
	*realtime.Client
	t    *testing.T
	name string
}

func (r *racingStore) FetchRecords(ctx context.Context, table string) ([]realtime.Record, error) {
	insert(r.t, r.Client, r.name, "Percussion")
	return r.Client.FetchRecords(ctx, table)
}

func TestView_Mount(t *testing.T) {
	t.Run("loads snapshot and becomes ready", func(t *testing.T) {
		client, _ := setupTestStore(t)
		piano := insert(t, client, "Piano", "Keyboard")
		drums := insert(t, client, "Drums", "Percussion")

		v := mountView(t, client, testOptions())

		assert.Equal(t, PhaseReady, v.Phase())
		assert.Equal(t, []int64{drums.ID, piano.ID}, ids(v.Snapshot().Records))
		assert.Regexp(t, `^user-[0-9a-f]{9}$`, v.PresenceKey())
	})

	t.Run("empty table is ready with no records", func(t *testing.T) {
		client, _ := setupTestStore(t)

		v := mountView(t, client, testOptions())

		state := v.Snapshot()
		assert.Equal(t, PhaseReady, state.Phase)
		assert.Empty(t, state.Records)
	})

	t.Run("tracks own presence", func(t *testing.T) {
		client, _ := setupTestStore(t)

		v := mountView(t, client, testOptions())

		waitForState(t, v, func(s ViewState) bool { return s.OnlineUsers == 1 })
		state, err := client.PresenceState(context.Background(), testChannel)
		require.NoError(t, err)
		assert.Contains(t, state, v.PresenceKey())
	})

	t.Run("second mount is rejected", func(t *testing.T) {
		client, _ := setupTestStore(t)
		v := mountView(t, client, testOptions())

		err := v.Mount(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyMounted)
		assert.Equal(t, PhaseReady, v.Phase())
	})

	t.Run("snapshot failure enters load failed and releases everything", func(t *testing.T) {
		client, _ := setupTestStore(t)
		cause := errors.New("connection reset")
		v := NewView(&failingStore{Client: client, err: cause}, testOptions())

		err := v.Mount(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSnapshotFailed)
		assert.ErrorIs(t, err, cause)
		state := v.Snapshot()
		assert.Equal(t, PhaseLoadFailed, state.Phase)
		assert.Empty(t, state.Records)

		presence, err := client.PresenceState(context.Background(), testChannel)
		require.NoError(t, err)
		assert.Empty(t, presence)

		// Changes after the failure are not applied
		insert(t, client, "Piano", "Keyboard")
		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, v.Snapshot().Records)

		assert.ErrorIs(t, v.Mount(context.Background()), ErrAlreadyMounted)
		require.NoError(t, v.Unmount())
		assert.Equal(t, PhaseUnmounted, v.Phase())
	})

	t.Run("subscribe failure enters load failed", func(t *testing.T) {
		client, mr := setupTestStore(t)
		mr.Close()

		v := NewView(client, testOptions())
		err := v.Mount(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to subscribe to changes")
		assert.Equal(t, PhaseLoadFailed, v.Phase())
	})
}

func TestView_ChangeFeed(t *testing.T) {
	t.Run("created event is prepended with activity", func(t *testing.T) {
		client, _ := setupTestStore(t)
		piano := insert(t, client, "Piano", "Keyboard")
		v := mountView(t, client, testOptions())

		drums := insert(t, client, "Drums", "Percussion")

		state := waitForState(t, v, func(s ViewState) bool { return len(s.Records) == 2 })
		assert.Equal(t, []int64{drums.ID, piano.ID}, ids(state.Records))
		assert.Contains(t, state.LastActivity, "Drums")
	})

	t.Run("updated event replaces in place", func(t *testing.T) {
		client, _ := setupTestStore(t)
		insert(t, client, "Piano", "Keyboard")
		violin := insert(t, client, "Violin", "String")
		insert(t, client, "Drums", "Percussion")
		v := mountView(t, client, testOptions())

		_, err := client.UpdateRecord(context.Background(), testTable, violin.ID, realtime.RecordDraft{Name: "Viola", Type: "String"})
		require.NoError(t, err)

		state := waitForState(t, v, func(s ViewState) bool {
			return len(s.Records) == 3 && s.Records[1].Name == "Viola"
		})
		assert.Equal(t, violin.ID, state.Records[1].ID)
		assert.Equal(t, `Instrument "Viola" was updated!`, state.LastActivity)
	})

	t.Run("deleted event removes the entry", func(t *testing.T) {
		client, _ := setupTestStore(t)
		piano := insert(t, client, "Piano", "Keyboard")
		violin := insert(t, client, "Violin", "String")
		v := mountView(t, client, testOptions())

		require.NoError(t, client.DeleteRecord(context.Background(), testTable, violin.ID))

		state := waitForState(t, v, func(s ViewState) bool { return len(s.Records) == 1 })
		assert.Equal(t, []int64{piano.ID}, ids(state.Records))
		assert.Equal(t, "An instrument was deleted!", state.LastActivity)
	})

	t.Run("insert racing the snapshot appears once in compatibility mode", func(t *testing.T) {
		client, _ := setupTestStore(t)
		opts := testOptions()
		opts.DedupeInserts = false
		v := mountView(t, &racingStore{Client: client, t: t, name: "Drums"}, opts)

		state := waitForState(t, v, func(s ViewState) bool { return strings.Contains(s.LastActivity, "Drums") })
		require.Len(t, state.Records, 1)
		assert.Equal(t, "Drums", state.Records[0].Name)

		piano := insert(t, client, "Piano", "Keyboard")
		state = waitForState(t, v, func(s ViewState) bool { return len(s.Records) == 2 })
		assert.Equal(t, []int64{piano.ID, state.Records[1].ID}, ids(state.Records))
		assert.Equal(t, "Drums", state.Records[1].Name)
	})

	t.Run("malformed events are dropped", func(t *testing.T) {
		client, mr := setupTestStore(t)
		v := mountView(t, client, testOptions())

		channel := realtime.ChangesChannel(testInstance, testTable)
		mr.Publish(channel, "not json")
		mr.Publish(channel, `{"type":"INSERT","table":"instruments"}`)
		mr.Publish(channel, `{"type":"TRUNCATE","table":"instruments"}`)

		piano := insert(t, client, "Piano", "Keyboard")

		state := waitForState(t, v, func(s ViewState) bool { return len(s.Records) > 0 })
		assert.Equal(t, []int64{piano.ID}, ids(state.Records))
		assert.Equal(t, PhaseReady, state.Phase)
	})
}

func TestView_Activity(t *testing.T) {
	t.Run("broadcast overwrites the activity message", func(t *testing.T) {
		client, _ := setupTestStore(t)
		v := mountView(t, client, testOptions())

		require.NoError(t, client.Send(context.Background(), testChannel, "user-activity", ActivityPayload{Message: "Someone tuned a Cello!"}))

		waitForState(t, v, func(s ViewState) bool { return s.LastActivity == "Someone tuned a Cello!" })
	})

	t.Run("broadcast without a message is ignored", func(t *testing.T) {
		client, _ := setupTestStore(t)
		v := mountView(t, client, testOptions())

		require.NoError(t, client.Send(context.Background(), testChannel, "user-activity", map[string]int{"count": 1}))
		require.NoError(t, client.Send(context.Background(), testChannel, "user-activity", ActivityPayload{Message: "after"}))

		waitForState(t, v, func(s ViewState) bool { return s.LastActivity == "after" })
	})

	t.Run("other events on the channel are ignored", func(t *testing.T) {
		client, _ := setupTestStore(t)
		v := mountView(t, client, testOptions())

		require.NoError(t, client.Send(context.Background(), testChannel, "cursor-move", ActivityPayload{Message: "ignored"}))
		require.NoError(t, client.Send(context.Background(), testChannel, "user-activity", ActivityPayload{Message: "seen"}))

		state := waitForState(t, v, func(s ViewState) bool { return s.LastActivity != "" })
		assert.Equal(t, "seen", state.LastActivity)
	})

	t.Run("join announcement fires after the delay", func(t *testing.T) {
		client, _ := setupTestStore(t)
		opts := testOptions()
		opts.AnnounceDelay = 50 * time.Millisecond
		v := mountView(t, client, opts)

		waitForState(t, v, func(s ViewState) bool { return s.LastActivity == JoinAnnouncement })
	})

	t.Run("unmount cancels a pending announcement", func(t *testing.T) {
		client, _ := setupTestStore(t)
		sub, err := client.SubscribeBroadcast(context.Background(), testChannel, "user-activity")
		require.NoError(t, err)
		defer sub.Close()

		opts := testOptions()
		opts.AnnounceDelay = 200 * time.Millisecond
		v := NewView(client, opts)
		require.NoError(t, v.Mount(context.Background()))
		require.NoError(t, v.Unmount())

		select {
		case msg := <-sub.Events():
			t.Fatalf("unexpected broadcast after unmount: %s", msg.Payload)
		case <-time.After(400 * time.Millisecond):
		}
	})
}

func TestView_AddSample(t *testing.T) {
	client, _ := setupTestStore(t)
	opts := testOptions()
	opts.Samples = []realtime.RecordDraft{{Name: "Kazoo", Type: "Woodwind"}}
	v := mountView(t, client, opts)

	sub, err := client.SubscribeBroadcast(context.Background(), testChannel, opts.ActivityEvent)
	require.NoError(t, err)
	defer sub.Close()

	added, err := v.AddSample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Kazoo", added.Name)
	assert.Equal(t, "Woodwind", added.Type)

	// The record arrives through the change feed, not a local write
	state := waitForState(t, v, func(s ViewState) bool { return len(s.Records) == 1 })
	assert.Equal(t, added.ID, state.Records[0].ID)

	select {
	case msg := <-sub.Events():
		assert.JSONEq(t, `{"message":"Someone added a Kazoo!"}`, string(msg.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for activity broadcast")
	}
}

func TestView_Presence(t *testing.T) {
	t.Run("counts every mounted view", func(t *testing.T) {
		client, _ := setupTestStore(t)
		a := mountView(t, client, testOptions())
		b := mountView(t, client, testOptions())

		waitForState(t, a, func(s ViewState) bool { return s.OnlineUsers == 2 })
		waitForState(t, b, func(s ViewState) bool { return s.OnlineUsers == 2 })

		require.NoError(t, b.Unmount())
		waitForState(t, a, func(s ViewState) bool { return s.OnlineUsers == 1 })
	})

	t.Run("heartbeat re-tracks a dropped key", func(t *testing.T) {
		client, mr := setupTestStore(t)
		opts := testOptions()
		opts.HeartbeatInterval = 20 * time.Millisecond
		v := mountView(t, client, opts)

		mr.HDel(realtime.PresenceKey(testInstance, testChannel), v.PresenceKey())

		require.Eventually(t, func() bool {
			state, err := client.PresenceState(context.Background(), testChannel)
			if err != nil {
				return false
			}
			_, ok := state[v.PresenceKey()]
			return ok
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestView_Unmount(t *testing.T) {
	t.Run("discards state and stops applying changes", func(t *testing.T) {
		client, _ := setupTestStore(t)
		insert(t, client, "Piano", "Keyboard")
		v := mountView(t, client, testOptions())
		waitForState(t, v, func(s ViewState) bool { return s.OnlineUsers == 1 })

		require.NoError(t, v.Unmount())

		state := v.Snapshot()
		assert.Equal(t, PhaseUnmounted, state.Phase)
		assert.Empty(t, state.Records)
		assert.Zero(t, state.OnlineUsers)
		assert.Empty(t, state.LastActivity)
		assert.Empty(t, v.PresenceKey())

		insert(t, client, "Drums", "Percussion")
		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, v.Snapshot().Records)

		presence, err := client.PresenceState(context.Background(), testChannel)
		require.NoError(t, err)
		assert.Empty(t, presence)
	})

	t.Run("is safe to repeat and before mount", func(t *testing.T) {
		client, _ := setupTestStore(t)
		v := NewView(client, testOptions())

		assert.NoError(t, v.Unmount())
		require.NoError(t, v.Mount(context.Background()))
		assert.NoError(t, v.Unmount())
		assert.NoError(t, v.Unmount())
	})

	t.Run("remount starts from a fresh snapshot", func(t *testing.T) {
		client, _ := setupTestStore(t)
		insert(t, client, "Piano", "Keyboard")
		v := mountView(t, client, testOptions())
		firstKey := v.PresenceKey()
		require.NoError(t, v.Unmount())

		insert(t, client, "Drums", "Percussion")
		require.NoError(t, v.Mount(context.Background()))

		state := v.Snapshot()
		assert.Equal(t, PhaseReady, state.Phase)
		assert.Len(t, state.Records, 2)
		assert.NotEqual(t, firstKey, v.PresenceKey())
	})

	t.Run("cancelling the mount context stops the loop", func(t *testing.T) {
		client, _ := setupTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		v := NewView(client, testOptions())
		require.NoError(t, v.Mount(ctx))

		cancel()
		time.Sleep(50 * time.Millisecond)
		insert(t, client, "Piano", "Keyboard")
		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, v.Snapshot().Records)

		require.NoError(t, v.Unmount())
	})
}

func TestView_Changes(t *testing.T) {
	client, _ := setupTestStore(t)
	v := mountView(t, client, testOptions())

	// Drain the signals produced by Mount
	select {
	case <-v.Changes():
	default:
	}

	insert(t, client, "Piano", "Keyboard")

	select {
	case <-v.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}
