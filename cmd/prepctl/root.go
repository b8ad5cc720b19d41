package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/preppro/backend/internal/config"
	"github.com/preppro/backend/internal/database"
	"github.com/preppro/backend/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "prepctl",
	Short:         "PrepPro administration",
	Long:          "prepctl runs schema migrations, imports the MCQ bank and manages accounts for the PrepPro backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(tokensCmd)
}

// connect loads config the same way the server does and opens the database.
func connect() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(logger.Options{Token: cfg.RollbarToken, Environment: cfg.Env, Version: cfg.Version})
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
