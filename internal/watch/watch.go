// Package watch streams a live tracker view to a terminal or a pipe.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/mattn/go-isatty"
)

// OutputFormat specifies how view states are written
type OutputFormat string

const (
	// OutputFormatDefault re-renders the page on every change
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON writes one JSON ViewState per line
	OutputFormatJSON OutputFormat = "json"
)

// clearScreen moves the cursor home and clears the terminal
const clearScreen = "\033[H\033[2J"

// Source is a live view that can be streamed.
type Source interface {
	Snapshot() tracker.ViewState
	Changes() <-chan struct{}
}

// ParseOutputFormat validates a --output flag value
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Stream writes the current state of src to w, then again after every change, until
// ctx is cancelled or the change channel is closed. Unmounted states are skipped.
func Stream(ctx context.Context, src Source, w io.Writer, format OutputFormat) error {
	write := newFormatter(w, format)

	if err := writeState(write, src.Snapshot()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-src.Changes():
			if !ok {
				return nil
			}
			if err := writeState(write, src.Snapshot()); err != nil {
				return err
			}
		}
	}
}

func writeState(write func(tracker.ViewState) error, state tracker.ViewState) error {
	if state.Phase == tracker.PhaseUnmounted {
		return nil
	}
	if err := write(state); err != nil {
		return fmt.Errorf("failed to write view state: %w", err)
	}
	return nil
}

func newFormatter(w io.Writer, format OutputFormat) func(tracker.ViewState) error {
	if format == OutputFormatJSON {
		enc := json.NewEncoder(w)
		return func(state tracker.ViewState) error {
			return enc.Encode(state)
		}
	}

	terminal := isTerminal(w)
	first := true
	return func(state tracker.ViewState) error {
		switch {
		case terminal:
			if _, err := io.WriteString(w, clearScreen); err != nil {
				return err
			}
		case !first:
			// Separate frames when piped
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		first = false
		return tracker.Render(w, state)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
