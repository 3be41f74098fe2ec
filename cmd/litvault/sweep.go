// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/litvault/internal/index"
	"github.com/pdiddy/litvault/internal/metrics"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/internal/recycle"
	"github.com/pdiddy/litvault/internal/relay"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge expired recycle-bin entries now",
	Long: `Sweep runs one purge pass: every pending entry whose retention window
has elapsed is marked purged and its record is removed for good. Safe to
run while other commands are active; entries being restored concurrently
are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engineConfig(cmd)

		store, err := record.NewStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		logger, _ := zap.NewProduction()
		defer logger.Sync()

		p := recycle.NewPurger(store, cfg.Recycle, logger, nil)
		summary, err := p.Sweep(context.Background(), time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("purged %d, lost races %d, errors %d\n",
			summary.Purged, summary.Lost, summary.Errors)
		return nil
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background purger and index relay",
	Long: `Daemon runs the periodic purger and the outbox change relay until
interrupted. Deploy it alongside the API when litvault serves live
traffic; the CLI commands work with or without it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engineConfig(cmd)

		store, err := record.NewStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		idx, err := index.New(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		logger, _ := zap.NewProduction()
		defer logger.Sync()

		met := metrics.New(prometheus.NewRegistry())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go relay.NewDispatcher(store, idx, cfg, logger, met).Run(ctx)
		recycle.NewPurger(store, cfg.Recycle, logger, met).Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd, daemonCmd)
}
