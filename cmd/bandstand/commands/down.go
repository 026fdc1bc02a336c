package commands

import (
	"context"
	"fmt"

	dockerpkg "github.com/dyluth/bandstand/internal/docker"
	"github.com/dyluth/bandstand/internal/instance"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/spf13/cobra"
)

var (
	downInstanceName string
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop a Bandstand instance",
	Long: `Stop and remove all Docker resources associated with a Bandstand instance.

This includes:
  • The Redis container (and the data it holds)
  • Docker network

The instance name is read from bandstand.yml if not specified.
The command does not prompt for confirmation and executes immediately.

Examples:
  # Stop the instance of the current project
  bandstand down

  # Stop a specific instance
  bandstand down --name rehearsal`,
	RunE: runDown,
}

func init() {
	downCmd.Flags().StringVarP(&downInstanceName, "name", "n", "", "Target instance name (read from bandstand.yml if omitted)")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	targetInstanceName := downInstanceName
	if targetInstanceName == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		targetInstanceName = cfg.Instance
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	printer.Info("Stopping instance '%s'...\n", targetInstanceName)

	found, err := instance.Remove(ctx, cli, targetInstanceName, printer.Step)
	if err != nil {
		return fmt.Errorf("failed to stop instance '%s': %w", targetInstanceName, err)
	}
	if !found {
		return printer.Error(
			fmt.Sprintf("instance '%s' not found", targetInstanceName),
			"No containers or networks found for this instance.",
			[]string{"List instances:\n  bandstand list"},
		)
	}

	printer.Success("Instance '%s' removed successfully\n", targetInstanceName)
	return nil
}
