// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litvault CLI, the literature
// record lifecycle and retrieval engine. Records live in a SQLite store;
// a full-text mirror index serves relevance-ranked search; deleted
// records sit in a recycle bin until restored or purged.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litvault/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the litvault CLI.
var rootCmd = &cobra.Command{
	Use:   "litvault",
	Short: "Literature record store with recycle bin and ranked search",
	Long: `litvault catalogs bibliographic records for research teams. Records are
stored authoritatively in SQLite; a derived full-text index serves
relevance-ranked search. Deleting a record moves it to a recycle bin where
it can be restored until the retention window elapses, after which the
purger removes it for good.

Use 'record' to manage records, 'search' to query, 'bin' for the recycle
bin, 'index' for mirror maintenance, and 'sweep' to purge expired entries.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litvault.yaml or ~/.config/litvault/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for litvault.db and search.db (default: ./data)")
	rootCmd.PersistentFlags().String("actor", "", "acting user id for mutating operations")
	rootCmd.PersistentFlags().String("role", "researcher", "acting user role: admin, researcher, student")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litvault")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litvault"))
		}
	}

	viper.SetEnvPrefix("LITVAULT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig assembles the engine configuration from the config file,
// environment, and persistent flags.
func engineConfig(cmd *cobra.Command) types.EngineConfig {
	cfg := types.EngineConfig{
		Store: types.StoreConfig{
			DataDir:  viper.GetString("store.data_dir"),
			PageSize: viper.GetInt("store.page_size"),
		},
		Index: types.IndexConfig{
			Timeout:        viper.GetDuration("index.timeout"),
			TitleWeight:    viper.GetFloat64("index.title_weight"),
			AbstractWeight: viper.GetFloat64("index.abstract_weight"),
			KeywordWeight:  viper.GetFloat64("index.keyword_weight"),
		},
		Relay: types.RelayConfig{
			PollInterval: viper.GetDuration("relay.poll_interval"),
			BatchSize:    viper.GetInt("relay.batch_size"),
			RetryBase:    viper.GetDuration("relay.retry_base"),
		},
		Recycle: types.RecycleConfig{
			Retention:     viper.GetDuration("recycle.retention"),
			SweepInterval: viper.GetDuration("recycle.sweep_interval"),
			SweepBatch:    viper.GetInt("recycle.sweep_batch"),
		},
		Ingest: types.IngestConfig{
			Email:      viper.GetString("ingest.email"),
			Timeout:    viper.GetDuration("ingest.timeout"),
			MaxRetries: viper.GetInt("ingest.max_retries"),
		},
	}

	if flagDir, _ := cmd.Flags().GetString("data-dir"); flagDir != "" {
		cfg.Store.DataDir = flagDir
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "data"
	}
	return cfg.WithDefaults()
}

// actorFromFlags reads the acting identity. The API layer normally
// supplies this; the CLI trusts the flags the same way.
func actorFromFlags(cmd *cobra.Command) (types.Actor, error) {
	id, _ := cmd.Flags().GetString("actor")
	if id == "" {
		return types.Actor{}, fmt.Errorf("--actor is required for this operation")
	}
	role, _ := cmd.Flags().GetString("role")
	return types.Actor{ID: id, Role: types.Role(role)}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
