package main

import (
	"fmt"

	"github.com/preppro/backend/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		_, db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.MigrateDown(db, steps); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back")
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 0, "Number of migrations to roll back (0 = all)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
