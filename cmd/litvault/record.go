// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litvault/internal/ingest"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Create, inspect, update, and delete literature records",
}

// --- add subcommand ---

var recordAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a literature record",
	Long: `Add creates an active literature record owned by the acting user and
queues it for search indexing. Fields are supplied via flags; list-valued
fields accept repeated flags.`,
	RunE: runRecordAdd,
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	actor, err := actorFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := record.NewStore(engineConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rec := recordFromFlags(cmd)
	created, err := store.Create(context.Background(), rec, actor)
	if err != nil {
		return err
	}

	fmt.Printf("created %s\n", created.ID)
	return nil
}

func recordFromFlags(cmd *cobra.Command) types.Record {
	title, _ := cmd.Flags().GetString("title")
	abstract, _ := cmd.Flags().GetString("abstract")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	diseases, _ := cmd.Flags().GetStringSlice("disease")
	authors, _ := cmd.Flags().GetStringSlice("author")
	journal, _ := cmd.Flags().GetString("journal")
	year, _ := cmd.Flags().GetInt("year")
	doi, _ := cmd.Flags().GetString("doi")
	pmid, _ := cmd.Flags().GetString("pmid")
	litType, _ := cmd.Flags().GetString("type")
	studyTypes, _ := cmd.Flags().GetStringSlice("study-type")
	isSCI, _ := cmd.Flags().GetBool("sci")
	filePath, _ := cmd.Flags().GetString("file")
	fileSize, _ := cmd.Flags().GetInt64("file-size")

	sts := make([]types.StudyType, len(studyTypes))
	for i, st := range studyTypes {
		sts[i] = types.StudyType(st)
	}

	return types.Record{
		Title:          title,
		Abstract:       abstract,
		Keywords:       keywords,
		Diseases:       diseases,
		Authors:        authors,
		Journal:        journal,
		Year:           year,
		DOI:            doi,
		PMID:           pmid,
		LiteratureType: types.LiteratureType(litType),
		StudyTypes:     sts,
		IsSCI:          isSCI,
		FilePath:       filePath,
		FileSize:       fileSize,
	}
}

// --- import subcommand ---

var recordImportCmd = &cobra.Command{
	Use:   "import [doi]",
	Short: "Create a record from DOI metadata",
	Long: `Import looks the DOI up in OpenAlex, pre-fills a record from the
registered metadata (title, abstract, authors, journal, biblio), and
stores it owned by the acting user. Flags override fetched fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordImport,
}

func runRecordImport(cmd *cobra.Command, args []string) error {
	actor, err := actorFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg := engineConfig(cmd)

	resolver := ingest.NewResolver(nil, cfg.Ingest)
	rec, err := resolver.ResolveDOI(context.Background(), args[0])
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("disease") {
		rec.Diseases, _ = cmd.Flags().GetStringSlice("disease")
	}
	if cmd.Flags().Changed("study-type") {
		studyTypes, _ := cmd.Flags().GetStringSlice("study-type")
		rec.StudyTypes = make([]types.StudyType, len(studyTypes))
		for i, st := range studyTypes {
			rec.StudyTypes[i] = types.StudyType(st)
		}
	}
	if cmd.Flags().Changed("sci") {
		rec.IsSCI, _ = cmd.Flags().GetBool("sci")
	}

	store, err := record.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	created, err := store.Create(context.Background(), rec, actor)
	if err != nil {
		return err
	}
	fmt.Printf("imported %s (%s)\n", created.ID, created.Title)
	return nil
}

// --- get subcommand ---

var recordGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one active record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := record.NewStore(engineConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// --- update subcommand ---

var recordUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Apply a partial update to a record you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordUpdate,
}

func runRecordUpdate(cmd *cobra.Command, args []string) error {
	actor, err := actorFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := record.NewStore(engineConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	var patch record.Patch
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		patch.Title = &v
	}
	if cmd.Flags().Changed("abstract") {
		v, _ := cmd.Flags().GetString("abstract")
		patch.Abstract = &v
	}
	if cmd.Flags().Changed("keyword") {
		patch.Keywords, _ = cmd.Flags().GetStringSlice("keyword")
	}
	if cmd.Flags().Changed("disease") {
		patch.Diseases, _ = cmd.Flags().GetStringSlice("disease")
	}
	if cmd.Flags().Changed("author") {
		patch.Authors, _ = cmd.Flags().GetStringSlice("author")
	}
	if cmd.Flags().Changed("journal") {
		v, _ := cmd.Flags().GetString("journal")
		patch.Journal = &v
	}
	if cmd.Flags().Changed("year") {
		v, _ := cmd.Flags().GetInt("year")
		patch.Year = &v
	}
	if cmd.Flags().Changed("sci") {
		v, _ := cmd.Flags().GetBool("sci")
		patch.IsSCI = &v
	}

	rec, err := store.Update(context.Background(), args[0], patch, actor)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s\n", rec.ID)
	return nil
}

// --- delete subcommand ---

var recordDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Move a record you own to the recycle bin",
	Long: `Delete soft-deletes a record: it disappears from search and retrieval
but its snapshot stays in the recycle bin for the retention window
(default 30 days), during which 'bin restore' can bring it back.`,
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

		if err := store.SoftDelete(context.Background(), args[0], actor); err != nil {
			return err
		}
		fmt.Printf("deleted %s (recoverable until retention expires)\n", args[0])
		return nil
	},
}

// --- export subcommand ---

var recordExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export active records to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engineConfig(cmd)
		store, err := record.NewStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			err = store.ExportJSON(context.Background(), cfg.Store.DataDir, record.Criteria{})
		} else {
			err = store.ExportYAML(context.Background(), cfg.Store.DataDir, record.Criteria{})
		}
		if err != nil {
			return err
		}
		fmt.Println("export written to", cfg.Store.DataDir)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{recordAddCmd, recordUpdateCmd} {
		c.Flags().String("title", "", "record title")
		c.Flags().String("abstract", "", "abstract text")
		c.Flags().StringSlice("keyword", nil, "keyword (repeatable)")
		c.Flags().StringSlice("disease", nil, "disease tag (repeatable)")
		c.Flags().StringSlice("author", nil, "author (repeatable)")
		c.Flags().String("journal", "", "journal name")
		c.Flags().Int("year", 0, "publication year")
		c.Flags().String("doi", "", "DOI")
		c.Flags().String("pmid", "", "PubMed id")
		c.Flags().String("type", "journal", "literature type: journal, thesis, conference, book, patent, ...")
		c.Flags().StringSlice("study-type", nil, "study type (repeatable)")
		c.Flags().Bool("sci", false, "SCI-indexed")
		c.Flags().String("file", "", "object-store reference for the full text")
		c.Flags().Int64("file-size", 0, "full-text size in bytes")
	}
	recordExportCmd.Flags().Bool("json", false, "export JSON instead of YAML")

	recordImportCmd.Flags().StringSlice("disease", nil, "disease tag (repeatable)")
	recordImportCmd.Flags().StringSlice("study-type", nil, "study type (repeatable)")
	recordImportCmd.Flags().Bool("sci", false, "SCI-indexed")

	recordCmd.AddCommand(recordAddCmd, recordImportCmd, recordGetCmd, recordUpdateCmd, recordDeleteCmd, recordExportCmd)
	rootCmd.AddCommand(recordCmd)
}
