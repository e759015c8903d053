package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd)
			database, _, err := openDB(logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if status {
				return database.MigrationStatus()
			}
			return database.RunMigrations()
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")

	return cmd
}
