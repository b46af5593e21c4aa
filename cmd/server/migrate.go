package main

import (
	"github.com/spf13/cobra"
)

var resetData bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		// Opening the store applies the schema.
		store, err := openStore(log)
		if err != nil {
			return err
		}
		defer store.Close()

		if resetData {
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			log.Warn().Str("path", cfg.Database.Path).Msg("all ledger data deleted")
		}
		log.Info().Str("path", cfg.Database.Path).Msg("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&resetData, "reset", false, "delete every row after migrating")
}
