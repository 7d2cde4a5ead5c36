// Package history persists blocked-submission records in SQLite. It is
// the storage collaborator behind the policy block logger; the engine
// itself keeps no cross-submission state.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Hussein-Mazeh/PhishGuard/policy"
	"github.com/Hussein-Mazeh/PhishGuard/risk"
)

const createBlocksTable = `
CREATE TABLE IF NOT EXISTS blocks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT    NOT NULL,
	url        TEXT    NOT NULL,
	hostname   TEXT    NOT NULL,
	risk_score REAL    NOT NULL,
	risk_level TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blocks_ts ON blocks(ts);
`

// Store wraps the SQLite handle holding the block history.
type Store struct {
	sql  *sql.DB
	path string
}

// Open initialises the history database at the given path, creating the
// schema when missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := handle.Exec(createBlocksTable); err != nil {
		handle.Close()
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	if err := ensurePerm0600(path); err != nil {
		handle.Close()
		return nil, err
	}

	return &Store{sql: handle, path: path}, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// ensurePerm0600 restricts the history file to its owner on Unix systems.
func ensurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod history database: %w", err)
	}
	return nil
}

// LogBlock stores one confirmed block. Implements policy.BlockLogger.
func (s *Store) LogBlock(ctx context.Context, rec policy.BlockRecord) error {
	if s == nil || s.sql == nil {
		return fmt.Errorf("history handle is nil")
	}

	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO blocks (ts, url, hostname, risk_score, risk_level) VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.URL, rec.Hostname, rec.RiskScore, string(rec.RiskLevel),
	)
	if err != nil {
		return fmt.Errorf("insert block record: %w", err)
	}
	return nil
}

// Recent returns up to limit block records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]policy.BlockRecord, error) {
	if s == nil || s.sql == nil {
		return nil, fmt.Errorf("history handle is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sql.QueryContext(ctx,
		`SELECT ts, url, hostname, risk_score, risk_level FROM blocks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query block records: %w", err)
	}
	defer rows.Close()

	var records []policy.BlockRecord
	for rows.Next() {
		var (
			rec   policy.BlockRecord
			ts    string
			level string
		)
		if err := rows.Scan(&ts, &rec.URL, &rec.Hostname, &rec.RiskScore, &level); err != nil {
			return nil, fmt.Errorf("scan block record: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse block timestamp: %w", err)
		}
		rec.Timestamp = parsed
		rec.RiskLevel = risk.Level(level)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block records: %w", err)
	}
	return records, nil
}

// Count returns the total number of recorded blocks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.sql == nil {
		return 0, fmt.Errorf("history handle is nil")
	}

	var count int64
	if err := s.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count block records: %w", err)
	}
	return count, nil
}
