package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atforche/financial-tracker/api"
	"github.com/atforche/financial-tracker/ledger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long:  `Starts the HTTP API server over the configured SQLite database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		store, err := openStore(log)
		if err != nil {
			return err
		}
		defer store.Close()

		l := ledger.New(store, log)
		handler := api.NewHandler(l, cfg.Display.Currency)
		if cfg.Demo.Scenarios {
			log.Warn().Msg("Demo scenarios enabled; loading one resets the database")
			handler = handler.WithScenarios(store)
		}
		router := api.NewRouter(handler, log, cfg.CORS.AllowedOrigins)

		scheduler := api.NewPeriodScheduler(l, log)
		scheduler.Enabled = cfg.Scheduler.Enabled
		scheduler.CheckInterval = cfg.Scheduler.Interval
		scheduler.GraceDays = cfg.Scheduler.GraceDays
		scheduler.Start()
		defer scheduler.Stop()

		server := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().
				Str("addr", server.Addr).
				Str("database", cfg.Database.Path).
				Str("currency", cfg.Display.Currency).
				Msg("Server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}

		log.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to run the API server on")
	serveCmd.Flags().Bool("scenarios", false, "Expose the demo scenario endpoints (loading one resets the database)")
}
