// Package history persists resolved scans in a local sqlite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nutriscan/backend/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id           TEXT PRIMARY KEY,
	barcode      TEXT NOT NULL,
	product_name TEXT NOT NULL,
	brand        TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	scanned_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at DESC);
`

// Store is a sqlite-backed scan history
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Record inserts one resolved scan. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, rec domain.ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, barcode, product_name, brand, source, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Barcode, rec.ProductName, rec.Brand, rec.Source, rec.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

// Recent returns the newest scans, most recent first
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, barcode, product_name, brand, source, scanned_at
		 FROM scans ORDER BY scanned_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(&rec.ID, &rec.Barcode, &rec.ProductName, &rec.Brand, &rec.Source, &rec.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}
