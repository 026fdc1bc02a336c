package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/olekukonko/tablewriter"
)

// maxCellWidth bounds name and type columns in the table
const maxCellWidth = 24

// FormatTable writes records as a table with columns ID, NAME, TYPE, ADDED and AGE.
func FormatTable(w io.Writer, records []realtime.Record, table string, now time.Time) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No records found in table '%s'\n", table)
		return err
	}

	fmt.Fprintf(w, "Records in table '%s':\n\n", table)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			truncate(r.Name),
			truncate(r.Type),
			r.CreatedAt.UTC().Format(time.RFC3339),
			formatAge(r.CreatedAt, now),
		})
	}

	tw := tablewriter.NewWriter(w)
	tw.Header([]string{"ID", "Name", "Type", "Added", "Age"})
	if err := tw.Bulk(rows); err != nil {
		return err
	}
	if err := tw.Render(); err != nil {
		return err
	}

	noun := "record"
	if len(records) != 1 {
		noun = "records"
	}
	_, err := fmt.Fprintf(w, "\n%d %s found\n", len(records), noun)
	return err
}

// FormatJSONL writes records as line-delimited JSON, one record per line.
// This format is ideal for streaming and processing with tools like jq.
func FormatJSONL(w io.Writer, records []realtime.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes a single record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, record *realtime.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > maxCellWidth {
		return string(runes[:maxCellWidth-3]) + "..."
	}
	return s
}

// formatAge shows relative time like "2m ago", "1h ago", etc.
func formatAge(createdAt, now time.Time) string {
	if createdAt.IsZero() {
		return "-"
	}

	diff := now.Sub(createdAt)
	switch {
	case diff < 0:
		return "just now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
