package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/spf13/cobra"
)

var (
	updateName string
	updateType string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename or re-categorize an instrument",
	Long: `Replace the name and/or type of an existing instrument.

The ID and creation time never change. Fields that are not given keep their
current value.

Examples:
  bandstand update 5 --name Viola
  bandstand update 5 --name "Grand Piano" --type Keyboard`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateName, "name", "", "New instrument name")
	updateCmd.Flags().StringVar(&updateType, "type", "", "New instrument type")
	updateCmd.MarkFlagsOneRequired("name", "type")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	current, err := client.GetRecord(ctx, cfg.Realtime.Table, id)
	if err != nil {
		if realtime.IsNotFound(err) {
			return recordNotFound(id)
		}
		return fmt.Errorf("failed to read instrument %d: %w", id, err)
	}

	draft := realtime.RecordDraft{Name: current.Name, Type: current.Type}
	if updateName != "" {
		draft.Name = updateName
	}
	if updateType != "" {
		draft.Type = updateType
	}

	updated, err := client.UpdateRecord(ctx, cfg.Realtime.Table, id, draft)
	if err != nil {
		if realtime.IsNotFound(err) {
			return recordNotFound(id)
		}
		return fmt.Errorf("failed to update instrument %d: %w", id, err)
	}

	printer.Success("Updated instrument %d: %s (%s)\n", updated.ID, updated.Name, updated.Type)
	return nil
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, printer.Error(
			"invalid instrument ID",
			fmt.Sprintf("'%s' is not a positive integer.", arg),
			[]string{"See IDs in the live view:\n  bandstand watch"},
		)
	}
	return id, nil
}

func recordNotFound(id int64) error {
	return printer.Error(
		fmt.Sprintf("instrument %d not found", id),
		"No instrument with this ID exists. It may have been deleted by another client.",
		[]string{"See current instruments:\n  bandstand watch"},
	)
}
