package main

import (
	"saasan/internal/db"

	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			commonRun()
			gdb, err := db.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			return db.Migrate(gdb)
		},
	}
}
