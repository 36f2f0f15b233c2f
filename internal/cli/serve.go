package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"option-calc-go/internal/api"
	"option-calc-go/internal/database"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calculator HTTP service",
		Example: `  optcalc serve
  optcalc serve --port 9090
  OPTCALC_SERVER_RATE_LIMIT=0 optcalc serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				app.Config.Server.Port = port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				sigchan := make(chan os.Signal, 1)
				signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigchan)
				select {
				case <-sigchan:
					app.Logger.Info("Shutdown signal received, gracefully shutting down...")
					cancel()
				case <-ctx.Done():
				}
			}()

			return app.Serve(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}

// Serve runs the HTTP service until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	log := a.Logger
	defer func() { _ = log.Sync() }()

	engine, err := a.Engine()
	if err != nil {
		return err
	}

	db, err := database.NewDatabase(a.Config)
	if err != nil {
		return fmt.Errorf("failed to open fee profile catalog: %w", err)
	}
	defer func() { _ = database.CloseDB(db) }()
	log.Info("Fee profile catalog loaded", zap.Int("profiles", len(a.Config.Profiles())))

	metrics := api.NewMetrics("api")
	server := api.NewServer(a.Config, log, engine, database.NewFeeProfileRepo(db), metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server has been shut down.")
	return nil
}
