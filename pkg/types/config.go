// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StoreConfig holds settings for the authoritative record store.
type StoreConfig struct {
	// DataDir is the directory holding litvault.db and search.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// PageSize is the default filter page size (default 20).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// IndexConfig holds settings for the search index mirror.
type IndexConfig struct {
	// Timeout bounds each index call issued by the change relay. On
	// expiry the change is requeued rather than failing the mutation
	// that produced it.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// TitleWeight, AbstractWeight, and KeywordWeight are the bm25 field
	// weights for relevance ranking. Title ranks highest by default.
	TitleWeight    float64 `json:"title_weight" yaml:"title_weight"`
	AbstractWeight float64 `json:"abstract_weight" yaml:"abstract_weight"`
	KeywordWeight  float64 `json:"keyword_weight" yaml:"keyword_weight"`
}

// RelayConfig holds settings for the outbox change relay.
type RelayConfig struct {
	// PollInterval is the delay between outbox polls (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// BatchSize bounds how many changes one poll delivers (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// RetryBase is the base backoff after a failed delivery; the delay
	// doubles each attempt (default 5s).
	RetryBase time.Duration `json:"retry_base" yaml:"retry_base"`
}

// RecycleConfig holds settings for the recycle bin and purger.
type RecycleConfig struct {
	// Retention is the recovery window before a deleted record becomes
	// eligible for purge (default 30 days). Read at purger startup.
	Retention time.Duration `json:"retention" yaml:"retention"`

	// SweepInterval is the purger's schedule (default 1h).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// SweepBatch bounds how many expired entries one sweep claims
	// (default 200), keeping sweeps off the foreground path.
	SweepBatch int `json:"sweep_batch" yaml:"sweep_batch"`
}

// IngestConfig holds settings for DOI metadata lookup.
type IngestConfig struct {
	// Email is sent as the mailto parameter for polite pool access.
	Email string `json:"email" yaml:"email"`

	// Timeout bounds one metadata lookup (default 15s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries bounds rate-limit retries per lookup (default 4).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	Store   StoreConfig   `json:"store" yaml:"store"`
	Index   IndexConfig   `json:"index" yaml:"index"`
	Relay   RelayConfig   `json:"relay" yaml:"relay"`
	Recycle RecycleConfig `json:"recycle" yaml:"recycle"`
	Ingest  IngestConfig  `json:"ingest" yaml:"ingest"`
}

// DefaultRetention is the recycle-bin recovery window applied when no
// retention is configured.
const DefaultRetention = 30 * 24 * time.Hour

// WithDefaults fills zero-valued fields with their defaults.
func (c EngineConfig) WithDefaults() EngineConfig {
	if c.Store.PageSize <= 0 {
		c.Store.PageSize = 20
	}
	if c.Index.Timeout <= 0 {
		c.Index.Timeout = 5 * time.Second
	}
	if c.Index.TitleWeight <= 0 {
		c.Index.TitleWeight = 3.0
	}
	if c.Index.AbstractWeight <= 0 {
		c.Index.AbstractWeight = 2.0
	}
	if c.Index.KeywordWeight <= 0 {
		c.Index.KeywordWeight = 1.0
	}
	if c.Relay.PollInterval <= 0 {
		c.Relay.PollInterval = time.Second
	}
	if c.Relay.BatchSize <= 0 {
		c.Relay.BatchSize = 100
	}
	if c.Relay.RetryBase <= 0 {
		c.Relay.RetryBase = 5 * time.Second
	}
	if c.Recycle.Retention <= 0 {
		c.Recycle.Retention = DefaultRetention
	}
	if c.Recycle.SweepInterval <= 0 {
		c.Recycle.SweepInterval = time.Hour
	}
	if c.Recycle.SweepBatch <= 0 {
		c.Recycle.SweepBatch = 200
	}
	if c.Ingest.Timeout <= 0 {
		c.Ingest.Timeout = 15 * time.Second
	}
	if c.Ingest.MaxRetries <= 0 {
		c.Ingest.MaxRetries = 4
	}
	return c
}
