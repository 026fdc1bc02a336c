package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	dockerpkg "github.com/dyluth/bandstand/internal/docker"
	"github.com/dyluth/bandstand/internal/instance"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/spf13/cobra"
)

var (
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all Bandstand instances",
	Long: `List all Bandstand instances by querying Docker for containers with the
bandstand.project label.

For each instance, displays:
  • Instance name
  • Status (Running/Degraded/Stopped)
  • Redis port
  • Uptime (for running instances)

Use --json for machine-readable output.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	infos, err := instance.List(ctx, cli, time.Now())
	if err != nil {
		return err
	}

	if listJSON {
		return outputJSON(infos)
	}
	return outputTable(infos)
}

func outputJSON(infos []instance.InstanceInfo) error {
	output := struct {
		Instances []instance.InstanceInfo `json:"instances"`
	}{
		Instances: infos,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	printer.Println(string(data))
	return nil
}

func outputTable(infos []instance.InstanceInfo) error {
	if len(infos) == 0 {
		printer.Info("No Bandstand instances found.\n\nRun 'bandstand up' to start one.\n")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		port := "-"
		if info.RedisPort != 0 {
			port = strconv.Itoa(info.RedisPort)
		}
		rows = append(rows, []string{info.Name, string(info.Status), port, info.Uptime})
	}

	return printer.Table([]string{"Instance", "Status", "Redis", "Uptime"}, rows)
}
