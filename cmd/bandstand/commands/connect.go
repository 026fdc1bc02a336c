package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/bandstand/internal/config"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
	"github.com/dyluth/bandstand/internal/instance"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/redis/go-redis/v9"
)

// loadConfig reads the file named by --config, reporting failures with next steps
func loadConfig() (*config.BandstandConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"configuration not found or invalid",
			fmt.Sprintf("Could not load %s.", configPath),
			map[string]string{"Error": err.Error()},
			[]string{
				"Initialize a project first:\n  bandstand init",
				"Or point at another file:\n  bandstand --config path/to/bandstand.yml",
			},
		)
	}
	return cfg, nil
}

// resolveRedisURL returns the configured URL, or discovers the managed Redis
// container of the instance when none is configured.
func resolveRedisURL(ctx context.Context, cfg *config.BandstandConfig) (string, error) {
	if url := cfg.RedisURL(); url != "" {
		return url, nil
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return "", err
	}
	defer cli.Close()

	url, err := instance.DiscoverRedisURL(ctx, cli, cfg.Instance)
	if err != nil {
		return "", printer.Error(
			fmt.Sprintf("instance '%s' is not running", cfg.Instance),
			fmt.Sprintf("Error: %v", err),
			[]string{
				"Start the instance:\n  bandstand up",
				fmt.Sprintf("Or use an existing Redis:\n  export %s=redis://localhost:6379", config.RedisURLEnv),
			},
		)
	}
	return url, nil
}

// connectStore opens a realtime client for cfg and verifies Redis is reachable.
// The caller closes the client.
func connectStore(ctx context.Context, cfg *config.BandstandConfig) (*realtime.Client, error) {
	url, err := resolveRedisURL(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := realtime.NewClient(redisOpts, cfg.Instance, cfg.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", url),
			map[string]string{"Error": err.Error()},
			[]string{
				"Check the instance is running:\n  bandstand list",
				"Restart it:\n  bandstand down && bandstand up",
			},
		)
	}

	return client, nil
}
