package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchVerbose      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open a live view of the instrument list",
	Long: `Open a live view of the instrument list.

Loads the current instruments, then keeps them in sync with every insert,
update and delete committed by any client. The view also shows how many
viewers are online and the latest activity message.

Output Formats:
  default - The page, redrawn on every change
  json    - Line-delimited JSON view states for programmatic processing

Examples:
  # Watch in the terminal
  bandstand watch

  # Export view states as JSON
  bandstand watch --output=json > states.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Write tracker logs to stderr")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	outputFormat, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	if !watchVerbose {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
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

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := tracker.NewView(client, cfg.ViewOptions())
	defer view.Unmount()

	// A failed load keeps the degraded page up until interrupted, as serve does
	if err := view.Mount(runCtx); err != nil {
		printer.Warning("View failed to load: %v\n", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return streamUntilSignal(runCtx, view, printer.Out(), outputFormat, sigCh)
}

// streamUntilSignal streams src to out until a signal arrives or streaming fails.
func streamUntilSignal(ctx context.Context, src watch.Source, out io.Writer, format watch.OutputFormat, sigCh <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- watch.Stream(ctx, src, out, format)
	}()

	select {
	case <-sigCh:
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
