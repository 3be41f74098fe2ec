// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litvault/internal/index"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/internal/retrieval"
	"github.com/pdiddy/litvault/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [free text]",
	Short: "Search records by filters and full-text relevance",
	Long: `Search retrieves literature records. With free text, results are ranked
by field-weighted relevance from the search index and hydrated against
the authoritative store; without it, the query runs as exact relational
filtering. If the index is unreachable the query degrades to relational
filtering and the output notes it.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	req := searchRequestFromFlags(cmd, args)

	coord := retrieval.New(store, idx, cfg, nil)
	result, err := coord.Search(context.Background(), req)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(result, jsonOutput)
}

func searchRequestFromFlags(cmd *cobra.Command, args []string) types.SearchRequest {
	keyword, _ := cmd.Flags().GetString("keyword")
	diseases, _ := cmd.Flags().GetStringSlice("disease")
	studyTypes, _ := cmd.Flags().GetStringSlice("study-type")
	litTypes, _ := cmd.Flags().GetStringSlice("type")
	yearFrom, _ := cmd.Flags().GetInt("year-from")
	yearTo, _ := cmd.Flags().GetInt("year-to")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	req := types.SearchRequest{
		FreeText: strings.Join(args, " "),
		Keyword:  keyword,
		Diseases: diseases,
		YearFrom: yearFrom,
		YearTo:   yearTo,
		Page:     page,
		PageSize: pageSize,
	}
	for _, st := range studyTypes {
		req.StudyTypes = append(req.StudyTypes, types.StudyType(st))
	}
	for _, lt := range litTypes {
		req.LiteratureTypes = append(req.LiteratureTypes, types.LiteratureType(lt))
	}
	if cmd.Flags().Changed("sci") {
		v, _ := cmd.Flags().GetBool("sci")
		req.IsSCI = &v
	}
	return req
}

func formatSearchOutput(result types.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-50s  %-20s  %-6s  %s\n", "Rank", "Title", "Journal", "Year", "Score")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 96))
	for i, hit := range result.Items {
		title := hit.Record.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		journal := hit.Record.Journal
		if len(journal) > 20 {
			journal = journal[:17] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-50s  %-20s  %-6d  %.3f\n",
			i+1, title, journal, hit.Record.Year, hit.Score)
		if hit.Snippet != "" {
			fmt.Fprintf(os.Stdout, "      %s\n", hit.Snippet)
		}
	}

	fmt.Fprintf(os.Stdout, "\n%d of %d results in %d ms", len(result.Items), result.Total, result.TookMs)
	if result.Degraded {
		fmt.Fprint(os.Stdout, " (degraded: search index unavailable, no relevance ranking)")
	}
	fmt.Fprintln(os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().String("keyword", "", "substring match on title or abstract")
	searchCmd.Flags().StringSlice("disease", nil, "disease tag filter (repeatable, AND)")
	searchCmd.Flags().StringSlice("study-type", nil, "study type filter (repeatable, AND)")
	searchCmd.Flags().StringSlice("type", nil, "literature type filter (repeatable, OR)")
	searchCmd.Flags().Int("year-from", 0, "earliest publication year")
	searchCmd.Flags().Int("year-to", 0, "latest publication year")
	searchCmd.Flags().Bool("sci", false, "restrict to SCI-indexed records")
	searchCmd.Flags().Int("page", 1, "1-indexed page number")
	searchCmd.Flags().Int("page-size", 0, "results per page")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
