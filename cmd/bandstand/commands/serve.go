package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/internal/server"
	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live view over HTTP and websockets",
	Long: `Mount one live view and publish it over HTTP.

Endpoints:
  GET  /healthz  Redis connectivity and view phase
  GET  /state    current view state as JSON
  GET  /ws       websocket receiving the view state after every change
  POST /samples  add a random sample instrument

Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	// A failed load is reported through /healthz rather than aborting
	if err := view.Mount(runCtx); err != nil {
		printer.Warning("View failed to load: %v\n", err)
	}

	srv := server.New(client, view)
	if err := srv.Start(serveAddr); err != nil {
		return printer.Error(
			"could not start server",
			err.Error(),
			[]string{"Choose another address:\n  bandstand serve --addr 127.0.0.1:8081"},
		)
	}

	runDone := make(chan struct{})
	go func() {
		srv.Run(runCtx)
		close(runDone)
	}()

	printer.Success("Serving instance '%s' on http://%s\n", cfg.Instance, srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	printer.Info("Received signal %v, shutting down gracefully...\n", sig)

	cancel()
	<-runDone

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	printer.Info("Server stopped\n")
	return nil
}
