// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/internal/recycle"
)

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Browse and restore recycle-bin entries",
}

var binListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending recycle-bin entries",
	Long: `List shows the entries awaiting purge. Admins see every entry; other
actors see only records they deleted or own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		store, err := record.NewStore(engineConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := recycle.NewBin(store).ListPending(context.Background(), actor)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("Recycle bin is empty.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-20s  %s\n", "Entry", "Title", "Deleted", "Expires")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
		for _, e := range entries {
			title := e.Snapshot.Title
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-20s  %s\n",
				e.ID, title,
				e.DeletedAt.Format("2006-01-02 15:04"),
				e.ExpiresAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var binRestoreCmd = &cobra.Command{
	Use:   "restore [entry-id]",
	Short: "Restore a deleted record from the recycle bin",
	Long: `Restore re-creates the record from its deletion snapshot with the same
id and fields but a fresh updated timestamp, and queues it for
re-indexing. The entry becomes terminal; a later sweep ignores it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		store, err := record.NewStore(engineConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := recycle.NewBin(store).Restore(context.Background(), args[0], actor)
		if err != nil {
			return err
		}
		fmt.Printf("restored %s (%s)\n", rec.ID, rec.Title)
		return nil
	},
}

func init() {
	binCmd.AddCommand(binListCmd, binRestoreCmd)
	rootCmd.AddCommand(binCmd)
}
