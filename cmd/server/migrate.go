package main

import (
	"growjournal/internal/db"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var seed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.Init(cfg.Database); err != nil {
			return err
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := db.Migrate(db.DB); err != nil {
			return err
		}
		if seed {
			if err := db.SeedStrains(db.DB); err != nil {
				return err
			}
		}
		log.Info("Migration finished")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "insert the default strain catalogue")
}
