package main

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"healthassist/internal/config"
	"healthassist/internal/db"
	"healthassist/internal/logger"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Emergency alert tooling",
	}
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print alert events from the Postgres notification channel as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("HEALTHASSIST_DATABASE_URL is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events, err := db.Listen(ctx, cfg.DatabaseURL, cfg.NotifyChannel, logger.New("healthassist-alerts"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.AddCommand(watch)
	return cmd
}

