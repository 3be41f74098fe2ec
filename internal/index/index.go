// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index maintains the full-text search mirror of active
// literature records. The mirror is derived and eventually consistent:
// it is fed asynchronously from the record store's outbox and can be
// rebuilt from scratch at any time to restore exact parity. Upsert and
// Remove are idempotent so at-least-once redelivery is safe.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litvault/pkg/types"
)

const dbFile = "search.db"

// Index is the SQLite FTS5 search mirror.
type Index struct {
	db  *sql.DB
	cfg types.IndexConfig
}

// New opens or creates the search database at DataDir/search.db.
func New(cfg types.EngineConfig) (*Index, error) {
	cfg = cfg.WithDefaults()

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Store.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening search database: %w", err)
	}

	idx := &Index{db: db, cfg: cfg.Index}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating search schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) createSchema() error {
	statements := []string{
		// Searchable text, one FTS column per ranking field. Requires
		// go-sqlite3 built with -tags sqlite_fts5.
		`CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts
			USING fts5(record_id UNINDEXED, title, abstract, keywords)`,
		// Filterable fields, applied as hard post-filters (not scored).
		`CREATE TABLE IF NOT EXISTS docs (
			id TEXT PRIMARY KEY,
			year INTEGER,
			is_sci INTEGER NOT NULL DEFAULT 0,
			literature_type TEXT,
			diseases TEXT,
			study_types TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert indexes one document, replacing any previous version of the
// same id.
func (i *Index) Upsert(ctx context.Context, doc types.IndexDoc) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTx(ctx, tx, doc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, doc types.IndexDoc) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs_fts WHERE record_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clearing old document text: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO docs_fts (record_id, title, abstract, keywords) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Abstract, strings.Join(doc.Keywords, " "),
	); err != nil {
		return fmt.Errorf("indexing document text: %w", err)
	}

	studyTypes := make([]string, len(doc.StudyTypes))
	for n, st := range doc.StudyTypes {
		studyTypes[n] = string(st)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO docs (id, year, is_sci, literature_type, diseases, study_types)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			year=excluded.year, is_sci=excluded.is_sci,
			literature_type=excluded.literature_type,
			diseases=excluded.diseases, study_types=excluded.study_types`,
		doc.ID, doc.Year, boolInt(doc.IsSCI), string(doc.LiteratureType),
		jsonList(doc.Diseases), jsonList(studyTypes),
	); err != nil {
		return fmt.Errorf("indexing document fields: %w", err)
	}
	return nil
}

// Remove deletes a document. Removing an id that was never indexed (or
// already removed) is a no-op.
func (i *Index) Remove(ctx context.Context, id string) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM docs_fts WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("removing document text: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing document fields: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing remove: %w", err)
	}
	return nil
}

// Rebuild replaces the entire index contents from a fresh enumeration of
// active records, restoring 1:1 parity with the record store.
func (i *Index) Rebuild(ctx context.Context, docs []types.IndexDoc) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM docs_fts`); err != nil {
		return fmt.Errorf("clearing document text: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs`); err != nil {
		return fmt.Errorf("clearing document fields: %w", err)
	}

	for _, doc := range docs {
		if err := upsertTx(ctx, tx, doc); err != nil {
			return fmt.Errorf("rebuilding document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}
	return nil
}

// Size reports the number of indexed documents.
func (i *Index) Size(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT count(*) FROM docs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func jsonList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
