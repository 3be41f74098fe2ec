// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record persists literature records in SQLite and is the sole
// source of truth for their lifecycle. Soft deletes, the recycle-bin
// ledger append, and the outbox change event commit in one transaction;
// the search index mirror is fed asynchronously from the outbox.
package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/pkg/types"
)

const dbFile = "litvault.db"

// Store manages the authoritative litvault SQLite database.
type Store struct {
	db        *sql.DB
	pageSize  int
	retention time.Duration

	// now is swapped in tests to pin timestamps.
	now func() time.Time
}

// NewStore opens or creates the litvault database at DataDir/litvault.db
// and bootstraps the schema.
func NewStore(cfg types.EngineConfig) (*Store, error) {
	cfg = cfg.WithDefaults()

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Store.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:        db,
		pageSize:  cfg.Store.PageSize,
		retention: cfg.Recycle.Retention,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so the recycle bin can share
// transactions with the record table.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Retention returns the configured recycle-bin recovery window.
func (s *Store) Retention() time.Duration {
	return s.retention
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			keywords TEXT,
			diseases TEXT,
			authors TEXT,
			author_units TEXT,
			first_author TEXT,
			corresponding_author TEXT,
			journal TEXT,
			year INTEGER,
			volume TEXT,
			issue TEXT,
			pages TEXT,
			doi TEXT,
			pmid TEXT,
			literature_type TEXT,
			study_types TEXT,
			source TEXT,
			is_sci INTEGER NOT NULL DEFAULT 0,
			level TEXT,
			cas_partition TEXT,
			jcr_partition TEXT,
			impact_factor REAL,
			text_availability TEXT,
			file_path TEXT,
			file_size INTEGER,
			status TEXT NOT NULL DEFAULT 'active',
			owner_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status)`,
		`CREATE INDEX IF NOT EXISTS idx_records_year ON records(year)`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner_id)`,
		`CREATE TABLE IF NOT EXISTS recycle_bin (
			id TEXT PRIMARY KEY,
			record_type TEXT NOT NULL,
			record_id TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			deleted_by TEXT NOT NULL,
			deleted_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		// At most one pending entry per soft-deleted record.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_recycle_pending
			ON recycle_bin(record_id) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_recycle_expiry ON recycle_bin(status, expires_at)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			op TEXT NOT NULL,
			record_id TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			next_attempt TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_next ON outbox(next_attempt)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Create inserts a new active record owned by the actor, assigns its id
// and timestamps, and queues an index upsert.
func (s *Store) Create(ctx context.Context, rec types.Record, owner types.Actor) (types.Record, error) {
	if rec.Title == "" {
		return types.Record{}, fmt.Errorf("validation: empty title")
	}
	if owner.ID == "" {
		return types.Record{}, fmt.Errorf("validation: empty owner")
	}

	now := s.now()
	rec.ID = uuid.NewString()
	rec.Status = types.StatusActive
	rec.OwnerID = owner.ID
	rec.CreatedAt = now
	rec.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRecordTx(tx, rec); err != nil {
		return types.Record{}, err
	}
	if err := EnqueueTx(tx, OpUpsert, rec.ID, now); err != nil {
		return types.Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("committing create: %w", err)
	}
	return rec, nil
}

// Get returns the active record with the given id. Deleted and unknown
// ids both surface as errs.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (types.Record, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM records WHERE id = ? AND status = ?`,
		id, string(types.StatusActive),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("record %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("looking up record: %w", err)
	}
	return rec, nil
}

// GetMany returns the active records among ids, keyed by id. Missing or
// deleted ids are simply absent; the retrieval coordinator drops them.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]types.Record, error) {
	out := make(map[string]types.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]byte, 0, 2*len(ids))
	args := make([]any, 0, len(ids)+1)
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	args = append(args, string(types.StatusActive))

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM records WHERE id IN (`+string(placeholders)+`) AND status = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Title          *string
	Abstract       *string
	Keywords       []string
	Diseases       []string
	Authors        []string
	Journal        *string
	Year           *int
	DOI            *string
	PMID           *string
	LiteratureType *types.LiteratureType
	StudyTypes     []types.StudyType
	IsSCI          *bool
	ImpactFactor   *float64
	FilePath       *string
	FileSize       *int64
}

func (p Patch) apply(rec *types.Record) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Abstract != nil {
		rec.Abstract = *p.Abstract
	}
	if p.Keywords != nil {
		rec.Keywords = p.Keywords
	}
	if p.Diseases != nil {
		rec.Diseases = p.Diseases
	}
	if p.Authors != nil {
		rec.Authors = p.Authors
	}
	if p.Journal != nil {
		rec.Journal = *p.Journal
	}
	if p.Year != nil {
		rec.Year = *p.Year
	}
	if p.DOI != nil {
		rec.DOI = *p.DOI
	}
	if p.PMID != nil {
		rec.PMID = *p.PMID
	}
	if p.LiteratureType != nil {
		rec.LiteratureType = *p.LiteratureType
	}
	if p.StudyTypes != nil {
		rec.StudyTypes = p.StudyTypes
	}
	if p.IsSCI != nil {
		rec.IsSCI = *p.IsSCI
	}
	if p.ImpactFactor != nil {
		rec.ImpactFactor = *p.ImpactFactor
	}
	if p.FilePath != nil {
		rec.FilePath = *p.FilePath
	}
	if p.FileSize != nil {
		rec.FileSize = *p.FileSize
	}
}

// Update applies a partial update to an active record. Only the owner
// (or an admin) may mutate; ownership itself never changes.
func (s *Store) Update(ctx context.Context, id string, patch Patch, actor types.Actor) (types.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := getActiveTx(tx, id)
	if err != nil {
		return types.Record{}, err
	}
	if rec.OwnerID != actor.ID && !actor.IsAdmin() {
		return types.Record{}, fmt.Errorf("record %s owned by %s: %w", id, rec.OwnerID, errs.ErrForbidden)
	}

	patch.apply(&rec)
	rec.UpdatedAt = s.now()

	if err := updateRecordTx(tx, rec); err != nil {
		return types.Record{}, err
	}
	if err := EnqueueTx(tx, OpUpsert, rec.ID, rec.UpdatedAt); err != nil {
		return types.Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("committing update: %w", err)
	}
	return rec, nil
}

// SoftDelete marks a record deleted, appends its snapshot to the recycle
// bin with expiry = now + retention, and queues an index removal. All
// three commit in one transaction or none do.
func (s *Store) SoftDelete(ctx context.Context, id string, actor types.Actor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := getActiveTx(tx, id)
	if err != nil {
		return err
	}
	if rec.OwnerID != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("record %s owned by %s: %w", id, rec.OwnerID, errs.ErrForbidden)
	}

	now := s.now()
	if _, err := tx.Exec(
		`UPDATE records SET status = ?, updated_at = ? WHERE id = ?`,
		string(types.StatusDeleted), now.Format(time.RFC3339Nano), id,
	); err != nil {
		return fmt.Errorf("marking record deleted: %w", err)
	}

	rec.Status = types.StatusDeleted
	if err := appendRecycleTx(tx, rec, actor, now, s.retention); err != nil {
		return err
	}
	if err := EnqueueTx(tx, OpRemove, id, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing soft delete: %w", err)
	}
	return nil
}

// HardDelete physically removes a record row. It is idempotent: purging
// an already-removed row is a no-op.
func (s *Store) HardDelete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("hard-deleting record: %w", err)
	}
	return nil
}

// HardDeleteTx is HardDelete inside a caller-owned transaction, used by
// the purger so the ledger transition and the row removal commit together.
func HardDeleteTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("hard-deleting record: %w", err)
	}
	return nil
}

// ReviveTx re-creates an active record from a recycle-bin snapshot inside
// a caller-owned transaction. The record keeps its id and original fields
// but gets a fresh updated timestamp.
func ReviveTx(tx *sql.Tx, rec types.Record, now time.Time) error {
	rec.Status = types.StatusActive
	rec.UpdatedAt = now

	if _, err := tx.Exec(`DELETE FROM records WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clearing deleted row: %w", err)
	}
	if err := insertRecordTx(tx, rec); err != nil {
		return err
	}
	return EnqueueTx(tx, OpUpsert, rec.ID, now)
}

// appendRecycleTx writes one pending recycle-bin entry for a record
// being soft-deleted.
func appendRecycleTx(tx *sql.Tx, rec types.Record, actor types.Actor, now time.Time, retention time.Duration) error {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO recycle_bin (id, record_type, record_id, snapshot, deleted_by, deleted_at, expires_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), types.RecordTypeLiterature, rec.ID, string(snapshot),
		actor.ID,
		now.Format(time.RFC3339Nano),
		now.Add(retention).Format(time.RFC3339Nano),
		string(types.EntryPending),
	)
	if err != nil {
		return fmt.Errorf("appending recycle entry: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, title, abstract, keywords, diseases, authors, author_units,
	first_author, corresponding_author, journal, year, volume, issue, pages,
	doi, pmid, literature_type, study_types, source, is_sci, level,
	cas_partition, jcr_partition, impact_factor, text_availability,
	file_path, file_size, status, owner_id, created_at, updated_at`

func getActiveTx(tx *sql.Tx, id string) (types.Record, error) {
	row := tx.QueryRow(
		selectColumns+` FROM records WHERE id = ? AND status = ?`,
		id, string(types.StatusActive),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("record %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("looking up record: %w", err)
	}
	return rec, nil
}

func insertRecordTx(tx *sql.Tx, rec types.Record) error {
	_, err := tx.Exec(
		`INSERT INTO records (id, title, abstract, keywords, diseases, authors, author_units,
			first_author, corresponding_author, journal, year, volume, issue, pages,
			doi, pmid, literature_type, study_types, source, is_sci, level,
			cas_partition, jcr_partition, impact_factor, text_availability,
			file_path, file_size, status, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordArgs(rec)...,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

func updateRecordTx(tx *sql.Tx, rec types.Record) error {
	args := recordArgs(rec)
	// Shift id to the WHERE clause.
	args = append(args[1:], rec.ID)
	_, err := tx.Exec(
		`UPDATE records SET title = ?, abstract = ?, keywords = ?, diseases = ?, authors = ?,
			author_units = ?, first_author = ?, corresponding_author = ?, journal = ?,
			year = ?, volume = ?, issue = ?, pages = ?, doi = ?, pmid = ?,
			literature_type = ?, study_types = ?, source = ?, is_sci = ?, level = ?,
			cas_partition = ?, jcr_partition = ?, impact_factor = ?, text_availability = ?,
			file_path = ?, file_size = ?, status = ?, owner_id = ?, created_at = ?, updated_at = ?
		 WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return nil
}

func recordArgs(rec types.Record) []any {
	return []any{
		rec.ID, rec.Title, rec.Abstract,
		marshalStrings(rec.Keywords), marshalStrings(rec.Diseases),
		marshalStrings(rec.Authors), marshalStrings(rec.AuthorUnits),
		rec.FirstAuthor, rec.CorrespondingAuthor, rec.Journal,
		rec.Year, rec.Volume, rec.Issue, rec.Pages,
		rec.DOI, rec.PMID, string(rec.LiteratureType), marshalStudyTypes(rec.StudyTypes),
		rec.Source, boolInt(rec.IsSCI), rec.Level,
		rec.CASPartition, rec.JCRPartition, rec.ImpactFactor, rec.TextAvailability,
		rec.FilePath, rec.FileSize, string(rec.Status), rec.OwnerID,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.Record, error) {
	var (
		rec            types.Record
		keywords       sql.NullString
		diseases       sql.NullString
		authors        sql.NullString
		authorUnits    sql.NullString
		studyTypes     sql.NullString
		litType        string
		status         string
		isSCI          int
		createdAt      string
		updatedAt      string
	)

	if err := sc.Scan(
		&rec.ID, &rec.Title, &rec.Abstract, &keywords, &diseases, &authors, &authorUnits,
		&rec.FirstAuthor, &rec.CorrespondingAuthor, &rec.Journal,
		&rec.Year, &rec.Volume, &rec.Issue, &rec.Pages,
		&rec.DOI, &rec.PMID, &litType, &studyTypes, &rec.Source, &isSCI, &rec.Level,
		&rec.CASPartition, &rec.JCRPartition, &rec.ImpactFactor, &rec.TextAvailability,
		&rec.FilePath, &rec.FileSize, &status, &rec.OwnerID, &createdAt, &updatedAt,
	); err != nil {
		return types.Record{}, err
	}

	rec.Keywords = unmarshalStrings(keywords)
	rec.Diseases = unmarshalStrings(diseases)
	rec.Authors = unmarshalStrings(authors)
	rec.AuthorUnits = unmarshalStrings(authorUnits)
	rec.LiteratureType = types.LiteratureType(litType)
	rec.Status = types.RecordStatus(status)
	rec.IsSCI = isSCI != 0

	if len(studyTypes.String) > 0 {
		var sts []types.StudyType
		json.Unmarshal([]byte(studyTypes.String), &sts)
		rec.StudyTypes = sts
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func marshalStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func unmarshalStrings(col sql.NullString) []string {
	if !col.Valid || col.String == "" || col.String == "[]" {
		return nil
	}
	var list []string
	json.Unmarshal([]byte(col.String), &list)
	return list
}

func marshalStudyTypes(list []types.StudyType) string {
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
