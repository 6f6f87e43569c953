// Package dataset persists parsed download records and the ledger of
// already-processed log files in a single SQLite database.
package dataset

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rendinam/logparse/internal/logparse"
)

// Store manages the download dataset database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	log    *zap.Logger
}

// Filter restricts the records returned by Select.
type Filter struct {
	// Start and End bound the date window, inclusive. Zero values
	// leave that side open.
	Start time.Time
	End   time.Time

	// IgnoreHosts are IP addresses excluded from the result.
	IgnoreHosts []string

	// Channel restricts results to one channel when non-empty.
	Channel string
}

// Run records one ingest invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	Records    int
}

// Open creates or opens a dataset store at the given path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: path,
		log:    logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize dataset schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Package download transactions. The unique index makes re-ingest
	-- of overlapping logs a no-op for rows already present.
	CREATE TABLE IF NOT EXISTS downloads (
		ip       TEXT NOT NULL,
		ts       DATETIME NOT NULL,
		path     TEXT NOT NULL,
		status   INTEGER NOT NULL,
		bytes    INTEGER NOT NULL,
		agent    TEXT,
		channel  TEXT NOT NULL,
		platform TEXT,
		name     TEXT NOT NULL,
		version  TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_downloads_txn ON downloads(ip, ts, path);
	CREATE INDEX IF NOT EXISTS idx_downloads_channel ON downloads(channel);
	CREATE INDEX IF NOT EXISTS idx_downloads_ts ON downloads(ts);

	-- Ledger of processed log files, keyed by content hash.
	CREATE TABLE IF NOT EXISTS log_files (
		hash        TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		ingested_at DATETIME NOT NULL,
		run_id      TEXT,
		records     INTEGER NOT NULL DEFAULT 0
	);

	-- One row per ingest invocation.
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME,
		files       INTEGER NOT NULL DEFAULT 0,
		records     INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// HasFile reports whether a log file with the given content hash has
// already been ingested.
func (s *Store) HasFile(hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM log_files WHERE hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check file ledger: %w", err)
	}
	return count > 0, nil
}

// AddFile records a processed log file in the ledger.
func (s *Store) AddFile(hash, name, runID string, records int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO log_files (hash, name, ingested_at, run_id, records)
		VALUES (?, ?, ?, ?, ?)
	`, hash, name, time.Now().UTC(), runID, records)
	if err != nil {
		return fmt.Errorf("failed to record log file: %w", err)
	}
	return nil
}

// AddRecords inserts download records, skipping any already present.
// Returns the number of rows actually added.
func (s *Store) AddRecords(records []logparse.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO downloads (ip, ts, path, status, bytes, agent, channel, platform, name, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, r := range records {
		res, err := stmt.Exec(r.IP, r.Time.UTC(), r.Path, r.Status, r.Bytes,
			r.Agent, r.Channel, r.Platform, r.Name, r.Version)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit records: %w", err)
	}

	if dup := len(records) - added; dup > 0 {
		s.log.Debug("skipped duplicate records", zap.Int("duplicates", dup))
	}
	return added, nil
}

// BeginRun opens an ingest run and returns its id.
func (s *Store) BeginRun() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO ingest_runs (id, started_at) VALUES (?, ?)
	`, id, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record ingest run: %w", err)
	}
	return id, nil
}

// FinishRun closes an ingest run with its totals.
func (s *Store) FinishRun(id string, files, records int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET finished_at = ?, files = ?, records = ? WHERE id = ?
	`, time.Now().UTC(), files, records, id)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run: %w", err)
	}
	return nil
}

// Select returns records matching the filter, ordered by timestamp.
func (s *Store) Select(f Filter) ([]logparse.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ip, ts, path, status, bytes, agent, channel, platform, name, version
		FROM downloads`
	var conds []string
	var args []any

	if !f.Start.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.Start.UTC())
	}
	if !f.End.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, f.End.UTC())
	}
	if f.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, f.Channel)
	}
	for _, ip := range f.IgnoreHosts {
		conds = append(conds, "ip != ?")
		args = append(args, ip)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var records []logparse.Record
	for rows.Next() {
		var r logparse.Record
		var agent, platform, version sql.NullString
		if err := rows.Scan(&r.IP, &r.Time, &r.Path, &r.Status, &r.Bytes,
			&agent, &r.Channel, &platform, &r.Name, &version); err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		r.Time = r.Time.UTC()
		r.Agent = agent.String
		r.Platform = platform.String
		r.Version = version.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read download rows: %w", err)
	}

	return records, nil
}

// Channels returns the distinct channels present in the dataset,
// sorted.
func (s *Store) Channels() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT channel FROM downloads ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// Count returns the total number of download records.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return n, nil
}
