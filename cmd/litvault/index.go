// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litvault/internal/index"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/internal/relay"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the full-text search mirror",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index from the record store",
	Long: `Rebuild replaces the entire index with a fresh enumeration of active
records. Use it to recover from index corruption or accumulated
staleness; afterwards the index is in exact 1:1 correspondence with the
active records.`,
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

		docs, err := store.ActiveDocs(context.Background())
		if err != nil {
			return err
		}
		if err := idx.Rebuild(context.Background(), docs); err != nil {
			return err
		}

		fmt.Printf("index rebuilt: %d documents\n", len(docs))
		return nil
	},
}

var indexSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver queued change events to the search index",
	Long: `Sync drains the outbox: every record write queued for indexing is
applied to the mirror now instead of waiting for the background relay.`,
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

		d := relay.NewDispatcher(store, idx, cfg, nil, nil)
		if err := d.Drain(context.Background()); err != nil {
			return err
		}

		depth, err := store.OutboxDepth(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("outbox drained, %d changes remaining\n", depth)
		return nil
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size and outbox depth",
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

		size, err := idx.Size(context.Background())
		if err != nil {
			return err
		}
		depth, err := store.OutboxDepth(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("indexed documents: %d\npending changes:   %d\n", size, depth)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd, indexSyncCmd, indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}
