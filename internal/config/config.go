package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/pkg/realtime"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up in the working directory.
const DefaultFileName = "bandstand.yml"

// RedisURLEnv overrides redis.url when set.
const RedisURLEnv = "BANDSTAND_REDIS_URL"

const (
	DefaultRedisImage        = "redis:7-alpine"
	DefaultTable             = "instruments"
	DefaultChannel           = "instruments-changes"
	DefaultActivityEvent     = "user-activity"
	DefaultAnnounceDelay     = time.Second
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultPresenceTTL       = 45 * time.Second
)

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// BandstandConfig represents the top-level bandstand.yml configuration
type BandstandConfig struct {
	Version  string          `yaml:"version"`
	Instance string          `yaml:"instance"`
	Redis    *RedisConfig    `yaml:"redis,omitempty"`
	Realtime *RealtimeConfig `yaml:"realtime,omitempty"`
	Samples  []SampleConfig  `yaml:"samples,omitempty"`
}

// RedisConfig specifies where the store lives. URL wins over a managed container.
type RedisConfig struct {
	URL   string `yaml:"url,omitempty"`   // e.g. redis://localhost:6379/0
	Image string `yaml:"image,omitempty"` // Image used by `bandstand up`
}

// RealtimeConfig specifies the tracked table and the channel used for presence and activity
type RealtimeConfig struct {
	Table             string    `yaml:"table,omitempty"`
	Channel           string    `yaml:"channel,omitempty"`
	ActivityEvent     string    `yaml:"activity_event,omitempty"`
	AnnounceDelay     *Duration `yaml:"announce_delay,omitempty"`     // 0 disables the join announcement
	HeartbeatInterval *Duration `yaml:"heartbeat_interval,omitempty"` // 0 disables presence refresh, only valid with presence_ttl 0
	PresenceTTL       *Duration `yaml:"presence_ttl,omitempty"`       // 0 disables pruning
	DedupeInserts     *bool     `yaml:"dedupe_inserts,omitempty"`
}

// SampleConfig is one instrument that `bandstand add --sample` can pick
type SampleConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Duration is a time.Duration written as a Go duration string ("1s", "500ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *BandstandConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: instance
	if c.Instance == "" {
		return fmt.Errorf("instance is required")
	}
	if !namePattern.MatchString(c.Instance) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens", c.Instance)
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.Image == "" {
		c.Redis.Image = DefaultRedisImage
	}

	if c.Realtime == nil {
		c.Realtime = &RealtimeConfig{}
	}
	if err := c.Realtime.Validate(); err != nil {
		return err
	}

	for i, s := range c.Samples {
		if s.Name == "" {
			return fmt.Errorf("samples[%d]: name is required", i)
		}
		if s.Type == "" {
			return fmt.Errorf("samples[%d]: type is required", i)
		}
	}

	return nil
}

// Validate applies defaults to the realtime section and checks its values
func (r *RealtimeConfig) Validate() error {
	if r.Table == "" {
		r.Table = DefaultTable
	}
	if r.Channel == "" {
		r.Channel = DefaultChannel
	}
	if r.ActivityEvent == "" {
		r.ActivityEvent = DefaultActivityEvent
	}
	if r.AnnounceDelay == nil {
		r.AnnounceDelay = durationPtr(DefaultAnnounceDelay)
	}
	if r.HeartbeatInterval == nil {
		r.HeartbeatInterval = durationPtr(DefaultHeartbeatInterval)
	}
	if r.PresenceTTL == nil {
		r.PresenceTTL = durationPtr(DefaultPresenceTTL)
	}
	if r.DedupeInserts == nil {
		dedupe := true
		r.DedupeInserts = &dedupe
	}

	if !namePattern.MatchString(r.Table) {
		return fmt.Errorf("realtime.table '%s' must be lowercase alphanumeric with hyphens", r.Table)
	}
	if r.AnnounceDelay.Std() < 0 {
		return fmt.Errorf("realtime.announce_delay must be >= 0, got %s", r.AnnounceDelay.Std())
	}
	if r.HeartbeatInterval.Std() < 0 {
		return fmt.Errorf("realtime.heartbeat_interval must be >= 0, got %s", r.HeartbeatInterval.Std())
	}
	if r.PresenceTTL.Std() < 0 {
		return fmt.Errorf("realtime.presence_ttl must be >= 0, got %s", r.PresenceTTL.Std())
	}

	// A participant must be refreshed before its entry expires
	if r.PresenceTTL.Std() > 0 && r.HeartbeatInterval.Std() == 0 {
		return fmt.Errorf("realtime.heartbeat_interval must be > 0 while realtime.presence_ttl (%s) is set; use presence_ttl: 0s to disable expiry",
			r.PresenceTTL.Std())
	}
	if r.PresenceTTL.Std() > 0 && r.HeartbeatInterval.Std() >= r.PresenceTTL.Std() {
		return fmt.Errorf("realtime.heartbeat_interval (%s) must be shorter than realtime.presence_ttl (%s)",
			r.HeartbeatInterval.Std(), r.PresenceTTL.Std())
	}

	return nil
}

// RedisURL returns the configured Redis URL, with the environment override applied.
// Empty means the managed container of this instance should be discovered.
func (c *BandstandConfig) RedisURL() string {
	if url := os.Getenv(RedisURLEnv); url != "" {
		return url
	}
	if c.Redis == nil {
		return ""
	}
	return c.Redis.URL
}

// ViewOptions converts the realtime section into tracker options
func (c *BandstandConfig) ViewOptions() tracker.Options {
	return tracker.Options{
		Instance:          c.Instance,
		Table:             c.Realtime.Table,
		Channel:           c.Realtime.Channel,
		ActivityEvent:     c.Realtime.ActivityEvent,
		AnnounceDelay:     c.Realtime.AnnounceDelay.Std(),
		HeartbeatInterval: c.Realtime.HeartbeatInterval.Std(),
		DedupeInserts:     *c.Realtime.DedupeInserts,
		Samples:           c.SampleDrafts(),
	}
}

// SampleDrafts returns the configured samples, or the defaults when none are set
func (c *BandstandConfig) SampleDrafts() []realtime.RecordDraft {
	if len(c.Samples) == 0 {
		return tracker.DefaultSamples()
	}
	drafts := make([]realtime.RecordDraft, 0, len(c.Samples))
	for _, s := range c.Samples {
		drafts = append(drafts, realtime.RecordDraft{Name: s.Name, Type: s.Type})
	}
	return drafts
}

// ClientOptions returns the realtime client options derived from the configuration
func (c *BandstandConfig) ClientOptions() []realtime.Option {
	return []realtime.Option{realtime.WithPresenceTTL(c.Realtime.PresenceTTL.Std())}
}

// Default returns a validated configuration for instance with every default applied
func Default(instance string) (*BandstandConfig, error) {
	cfg := &BandstandConfig{Version: "1.0", Instance: instance}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and validates bandstand.yml from the specified path
func Load(path string) (*BandstandConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config BandstandConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
