// Package serve runs the HTTP API and the processing pipeline.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/worq1337/parcer-sub001/cmd/root"
	"github.com/worq1337/parcer-sub001/internal/container"
)

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion API server",
	Long: `Run the HTTP server: text ingestion, the admin queue API and live
event streaming over SSE and websocket.`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	if path := root.DBPath(cmd); path != "" {
		cfg.Storage.Path = path
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			root.Log.WithError(err).Warn("Shutdown left resources unreleased")
		}
	}()

	listenAddr := cfg.Server.Addr
	if addr != "" {
		listenAddr = addr
	}

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: app.Server().Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		root.Log.WithField("addr", listenAddr).Info("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	root.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
