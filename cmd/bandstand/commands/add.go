package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/spf13/cobra"
)

var (
	addName   string
	addType   string
	addSample bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an instrument",
	Long: `Add an instrument to the shared list.

Either give --name and --type, or use --sample to add a random instrument from
the configured samples. A sample insert is announced to every viewer as
"Someone added a <name>!".

Examples:
  bandstand add --name Cello --type String
  bandstand add --sample`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Instrument name")
	addCmd.Flags().StringVar(&addType, "type", "", "Instrument type, e.g. String or Percussion")
	addCmd.Flags().BoolVar(&addSample, "sample", false, "Add a random sample instrument and announce it")
	addCmd.MarkFlagsMutuallyExclusive("sample", "name")
	addCmd.MarkFlagsMutuallyExclusive("sample", "type")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var draft realtime.RecordDraft
	if !addSample {
		draft = realtime.RecordDraft{Name: addName, Type: addType}
		if err := draft.Validate(); err != nil {
			return printer.Error(
				"missing instrument details",
				err.Error(),
				[]string{
					"Give both fields:\n  bandstand add --name Cello --type String",
					"Add a random sample:\n  bandstand add --sample",
				},
			)
		}
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

	var record realtime.Record
	if addSample {
		record, err = tracker.NewView(client, cfg.ViewOptions()).AddSample(ctx)
		if err != nil {
			return fmt.Errorf("failed to add sample: %w", err)
		}
	} else {
		records, err := client.InsertRecords(ctx, cfg.Realtime.Table, draft)
		if err != nil {
			return fmt.Errorf("failed to add instrument: %w", err)
		}
		record = records[0]
	}

	printer.Success("Added %s (%s) with ID %d\n", record.Name, record.Type, record.ID)
	return nil
}
