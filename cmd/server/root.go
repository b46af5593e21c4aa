package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atforche/financial-tracker/config"
	"github.com/atforche/financial-tracker/logger"
	"github.com/atforche/financial-tracker/store/sqlite"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
	cfg     config.Config

	rootCmd = &cobra.Command{
		Use:           "server",
		Short:         "Accounting ledger with fund tracking",
		Long:          `server runs the ledger HTTP API and administers its accounting periods.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.ledger.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path, \":memory:\" for a throwaway store")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	v, err := config.NewViper(cfgFile)
	cobra.CheckErr(err)
	bindFlags(v)

	cfg, err = config.FromViper(v)
	cobra.CheckErr(err)
	if verbose {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}
}

// bindFlags lets explicitly set flags win over every other source.
func bindFlags(v *viper.Viper) {
	cobra.CheckErr(v.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db")))
	cobra.CheckErr(v.BindPFlag("server.port", serveCmd.Flags().Lookup("port")))
	cobra.CheckErr(v.BindPFlag("demo.scenarios", serveCmd.Flags().Lookup("scenarios")))
}

func newLogger() zerolog.Logger {
	return logger.New(cfg.Log.Level).With().Str("component", "server").Logger()
}

// openStore opens the configured database, creating its directory first.
func openStore(log zerolog.Logger) (*sqlite.Store, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Msg("database opened")
	return store, nil
}
