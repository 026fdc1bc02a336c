package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/bandstand/internal/filter"
	"github.com/dyluth/bandstand/internal/inventory"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	recordsOutputFormat string
	recordsSince        string
	recordsUntil        string
	recordsType         string
	recordsName         string
)

var recordsCmd = &cobra.Command{
	Use:   "records [ID]",
	Short: "Inspect stored instruments with filtering",
	Long: `Inspect the instrument table in list or get mode, without opening a live view.

List Mode (no ID):
  Displays instruments matching filters as a table or JSONL stream, newest first.

Get Mode (with ID):
  Displays a single instrument as pretty-printed JSON.

Output Formats (list mode only):
  default - Human-readable table
  jsonl   - Line-delimited JSON, one instrument per line

Filters (list mode only):
  --since  - Added after this time (duration like 2h, or RFC3339)
  --until  - Added before this time
  --type   - Instrument type (glob pattern: "Str*")
  --name   - Instrument name (glob pattern: "*Piano")

Examples:
  # List all instruments
  bandstand records

  # String instruments added in the last hour, as JSONL
  bandstand records --type=String --since=1h --output=jsonl

  # Show one instrument
  bandstand records 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecords,
}

func init() {
	recordsCmd.Flags().StringVarP(&recordsOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	recordsCmd.Flags().StringVar(&recordsSince, "since", "", "Show instruments added after time (duration or RFC3339)")
	recordsCmd.Flags().StringVar(&recordsUntil, "until", "", "Show instruments added before time (duration or RFC3339)")
	recordsCmd.Flags().StringVar(&recordsType, "type", "", "Filter by type (glob pattern)")
	recordsCmd.Flags().StringVar(&recordsName, "name", "", "Filter by name (glob pattern)")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	now := time.Now()

	var format inventory.OutputFormat
	switch recordsOutputFormat {
	case "default":
		format = inventory.OutputFormatDefault
	case "jsonl":
		format = inventory.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", recordsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	since, until, err := timespec.ParseRange(recordsSince, recordsUntil, now)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like --since=2h or a timestamp like --since=2025-10-29T13:00:00Z"},
		)
	}

	var id int64
	if len(args) == 1 {
		if id, err = parseRecordID(args[0]); err != nil {
			return err
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

	if len(args) == 1 {
		if err := inventory.GetRecord(ctx, client, cfg.Realtime.Table, id, printer.Out()); err != nil {
			if inventory.IsNotFound(err) {
				return recordNotFound(id)
			}
			return err
		}
		return nil
	}

	criteria := &filter.Criteria{
		Since:    since,
		Until:    until,
		TypeGlob: recordsType,
		NameGlob: recordsName,
	}
	return inventory.ListRecords(ctx, client, cfg.Realtime.Table, format, criteria, printer.Out(), now)
}
