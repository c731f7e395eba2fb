package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/cache"
	"github.com/tbourn/checkin-badges/internal/config"
	"github.com/tbourn/checkin-badges/internal/credly"
	"github.com/tbourn/checkin-badges/internal/observability"
	"github.com/tbourn/checkin-badges/internal/repo"
	"github.com/tbourn/checkin-badges/internal/services"
	"github.com/tbourn/checkin-badges/internal/untappd"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun    bool
		eventFile string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate users and award the badge",
		Long: `Run fetches the recent check-ins of every configured user (and of every
linked account unless USE_ACCOUNTS=false), keeps the users that reach the
required number of distinct qualifying check-ins, and awards them the badge.

With --dry-run the badge API is never contacted. The report is printed to
stdout as JSON; progress is logged to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventFile != "" {
				if err := applyEvent(&cfg, eventFile); err != nil {
					return err
				}
			}
			if err := services.CheckCredentials(&cfg, dryRun); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, Version, "run")
			if err != nil {
				return fmt.Errorf("otel: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			db, closeDB, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB()

			store, closeStore, err := cache.Open(cfg.Cache, db)
			if err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			defer func() { _ = closeStore() }()

			svc := services.NewAwardService(&cfg, untappd.New(cfg.Untappd, store), credly.New(cfg.Credly), db)
			rep, err := svc.Run(log.Logger.WithContext(ctx), services.RunOptions{DryRun: dryRun})
			if rep != nil {
				if werr := writeReport(cmd.OutOrStdout(), rep); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate users without awarding badges")
	cmd.Flags().StringVar(&eventFile, "event", "", "YAML event profile (overrides EVENT_FILE)")
	return cmd
}

// applyEvent merges an event profile into c and revalidates it.
func applyEvent(c *config.Config, path string) error {
	ev, err := config.LoadEvent(path)
	if err != nil {
		return err
	}
	c.EventFile = path
	c.ApplyEvent(ev)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// openDB opens and migrates the accounts and award log database.
func openDB(path string) (*gorm.DB, func(), error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}

func writeReport(w io.Writer, rep *services.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
