package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/bandstand/internal/config"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
	"github.com/dyluth/bandstand/internal/instance"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the Redis store of a Bandstand instance",
	Long: `Start the managed Redis store for the instance named in bandstand.yml.

Creates and starts:
  • Isolated Docker network
  • Redis container, published on 127.0.0.1 at the first free port from 6379

If redis.url or BANDSTAND_REDIS_URL is set, the instance uses that server and
there is nothing to start.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if url := cfg.RedisURL(); url != "" {
		printer.Info("Instance '%s' uses external Redis at %s; nothing to start.\n", cfg.Instance, url)
		return nil
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := instance.ValidateName(cfg.Instance); err != nil {
		return err
	}

	collision, err := instance.CheckNameCollision(ctx, cli, cfg.Instance)
	if err != nil {
		return err
	}
	if collision {
		return printer.Error(
			fmt.Sprintf("instance '%s' already exists", cfg.Instance),
			"Found existing containers with this instance name.",
			[]string{
				"Stop the existing instance:\n  bandstand down",
				"Choose a different instance name in bandstand.yml",
			},
		)
	}

	canonical, err := instance.CanonicalPath(configPath)
	if err != nil {
		return err
	}

	port, err := instance.FindNextAvailablePort(ctx, cli)
	if err != nil {
		return fmt.Errorf("failed to allocate Redis port: %w", err)
	}
	printer.Success("Allocated Redis port: %d\n", port)

	spec := instance.StartSpec{
		InstanceName: cfg.Instance,
		Image:        cfg.Redis.Image,
		Port:         port,
		RunID:        dockerpkg.GenerateRunID(),
		ConfigPath:   canonical,
	}

	if err := instance.StartRedis(ctx, cli, spec, printer.Success); err != nil {
		printer.Println()
		printer.Warning("Resource creation failed. Rolling back...\n")
		if _, rollbackErr := instance.Remove(ctx, cli, cfg.Instance, printer.Step); rollbackErr != nil {
			printer.Warning("Rollback encountered errors: %v\n", rollbackErr)
		}
		return fmt.Errorf("failed to create instance: %w", err)
	}

	printUpSuccess(cfg, port)
	return nil
}

func printUpSuccess(cfg *config.BandstandConfig, port int) {
	printer.Println()
	printer.Success("Instance '%s' started successfully\n", cfg.Instance)
	printer.Println("\nRedis:")
	printer.Printf("  %s\n", instance.GetRedisURL(port))
	printer.Println("\nNext steps:")
	printer.Println("  • Run 'bandstand watch' to open a live view")
	printer.Println("  • Run 'bandstand add --sample' to add an instrument")
	printer.Println("  • Run 'bandstand down' when done")
}
