package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an instrument",
	Long: `Delete an instrument from the shared list. Every open view removes it
immediately.

The command does not prompt for confirmation and executes immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := client.DeleteRecord(ctx, cfg.Realtime.Table, id); err != nil {
		if realtime.IsNotFound(err) {
			return recordNotFound(id)
		}
		return fmt.Errorf("failed to delete instrument %d: %w", id, err)
	}

	printer.Success("Deleted instrument %d\n", id)
	return nil
}
