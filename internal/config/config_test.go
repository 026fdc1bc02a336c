package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "band-room"
redis:
  url: "redis://localhost:6380/1"
realtime:
  table: "instruments"
  channel: "stage"
  activity_event: "shout"
  announce_delay: "250ms"
  heartbeat_interval: "5s"
  presence_ttl: "20s"
  dedupe_inserts: false
samples:
  - name: "Kazoo"
    type: "Woodwind"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "band-room", config.Instance)
	assert.Equal(t, "redis://localhost:6380/1", config.Redis.URL)
	assert.Equal(t, DefaultRedisImage, config.Redis.Image)
	assert.Equal(t, "stage", config.Realtime.Channel)
	assert.Equal(t, "shout", config.Realtime.ActivityEvent)
	assert.Equal(t, 250*time.Millisecond, config.Realtime.AnnounceDelay.Std())
	assert.Equal(t, 5*time.Second, config.Realtime.HeartbeatInterval.Std())
	assert.Equal(t, 20*time.Second, config.Realtime.PresenceTTL.Std())
	assert.False(t, *config.Realtime.DedupeInserts)
	assert.Equal(t, []SampleConfig{{Name: "Kazoo", Type: "Woodwind"}}, config.Samples)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "default"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultRedisImage, config.Redis.Image)
	assert.Empty(t, config.Redis.URL)
	assert.Equal(t, DefaultTable, config.Realtime.Table)
	assert.Equal(t, DefaultChannel, config.Realtime.Channel)
	assert.Equal(t, DefaultActivityEvent, config.Realtime.ActivityEvent)
	assert.Equal(t, DefaultAnnounceDelay, config.Realtime.AnnounceDelay.Std())
	assert.Equal(t, DefaultHeartbeatInterval, config.Realtime.HeartbeatInterval.Std())
	assert.Equal(t, DefaultPresenceTTL, config.Realtime.PresenceTTL.Std())
	assert.True(t, *config.Realtime.DedupeInserts)
	assert.Empty(t, config.Samples)
}

func TestLoad_ZeroDurationsDisableTimers(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "quiet"
realtime:
  announce_delay: "0s"
  heartbeat_interval: "0s"
  presence_ttl: "0s"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	opts := config.ViewOptions()
	assert.Zero(t, opts.AnnounceDelay)
	assert.Zero(t, opts.HeartbeatInterval)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/bandstand.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "band"
realtime:
  announce_delay: "soon"
`)

	_, err := Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidate(t *testing.T) {
	negative := Duration(-time.Second)

	tests := []struct {
		name    string
		config  BandstandConfig
		wantErr string
	}{
		{
			name:    "unsupported version",
			config:  BandstandConfig{Version: "2.0", Instance: "band"},
			wantErr: "unsupported version",
		},
		{
			name:    "missing instance",
			config:  BandstandConfig{Version: "1.0"},
			wantErr: "instance is required",
		},
		{
			name:    "instance with uppercase",
			config:  BandstandConfig{Version: "1.0", Instance: "Band"},
			wantErr: "invalid instance name",
		},
		{
			name:    "instance ending in hyphen",
			config:  BandstandConfig{Version: "1.0", Instance: "band-"},
			wantErr: "invalid instance name",
		},
		{
			name:    "table with spaces",
			config:  BandstandConfig{Version: "1.0", Instance: "band", Realtime: &RealtimeConfig{Table: "my table"}},
			wantErr: "realtime.table",
		},
		{
			name:    "negative announce delay",
			config:  BandstandConfig{Version: "1.0", Instance: "band", Realtime: &RealtimeConfig{AnnounceDelay: &negative}},
			wantErr: "realtime.announce_delay must be >= 0",
		},
		{
			name: "heartbeat not shorter than presence ttl",
			config: BandstandConfig{Version: "1.0", Instance: "band", Realtime: &RealtimeConfig{
				HeartbeatInterval: durationPtr(30 * time.Second),
				PresenceTTL:       durationPtr(30 * time.Second),
			}},
			wantErr: "must be shorter than realtime.presence_ttl",
		},
		{
			name: "heartbeat disabled with the default presence ttl",
			config: BandstandConfig{Version: "1.0", Instance: "band", Realtime: &RealtimeConfig{
				HeartbeatInterval: durationPtr(0),
			}},
			wantErr: "realtime.heartbeat_interval must be > 0 while realtime.presence_ttl (45s) is set",
		},
		{
			name: "heartbeat and presence ttl both disabled",
			config: BandstandConfig{Version: "1.0", Instance: "band", Realtime: &RealtimeConfig{
				HeartbeatInterval: durationPtr(0),
				PresenceTTL:       durationPtr(0),
			}},
		},
		{
			name:    "sample without type",
			config:  BandstandConfig{Version: "1.0", Instance: "band", Samples: []SampleConfig{{Name: "Kazoo"}}},
			wantErr: "samples[0]: type is required",
		},
		{
			name:   "minimal config",
			config: BandstandConfig{Version: "1.0", Instance: "band"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisURL_EnvironmentOverride(t *testing.T) {
	config, err := Default("band")
	require.NoError(t, err)
	config.Redis.URL = "redis://from-file:6379"

	t.Setenv(RedisURLEnv, "")
	assert.Equal(t, "redis://from-file:6379", config.RedisURL())

	t.Setenv(RedisURLEnv, "redis://from-env:6379")
	assert.Equal(t, "redis://from-env:6379", config.RedisURL())
}

func TestViewOptions(t *testing.T) {
	config, err := Default("band")
	require.NoError(t, err)

	opts := config.ViewOptions()
	assert.Equal(t, "band", opts.Instance)
	assert.Equal(t, DefaultTable, opts.Table)
	assert.Equal(t, DefaultChannel, opts.Channel)
	assert.Equal(t, DefaultActivityEvent, opts.ActivityEvent)
	assert.Equal(t, DefaultAnnounceDelay, opts.AnnounceDelay)
	assert.Equal(t, DefaultHeartbeatInterval, opts.HeartbeatInterval)
	assert.True(t, opts.DedupeInserts)
	assert.Equal(t, tracker.DefaultSamples(), opts.Samples)

	config.Samples = []SampleConfig{{Name: "Kazoo", Type: "Woodwind"}}
	assert.Equal(t, []realtime.RecordDraft{{Name: "Kazoo", Type: "Woodwind"}}, config.ViewOptions().Samples)
}
