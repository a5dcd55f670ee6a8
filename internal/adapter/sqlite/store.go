// Package sqlite persists transfer attempts so interrupted downloads can
// resume after a process restart.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/arithx/update-engine/internal/domain"
	"github.com/arithx/update-engine/internal/port"
)

// Store implements port.TransferStore using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.TransferStore
var _ port.TransferStore = (*Store)(nil)

// Open opens a connection to the SQLite database
func Open(dbPath string) (*Store, error) {
	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS transfers (
			id TEXT PRIMARY KEY,
			destination_path TEXT UNIQUE NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			expected_size INTEGER NOT NULL DEFAULT 0,
			expected_digest TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'in_progress',
			bytes_downloaded INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// Begin records a new attempt for the plan. An unfinished record for the
// same destination is reclaimed when the plan allows resuming; otherwise
// the destination starts over with a fresh record.
func (s *Store) Begin(plan domain.TransferPlan) (*domain.Transfer, error) {
	existing, err := s.GetByDestination(plan.DestinationPath)
	if err != nil && !errors.Is(err, domain.ErrTransferNotFound) {
		return nil, err
	}

	if err == nil && plan.Resumable && existing.Resumable() {
		query := `
			UPDATE transfers
			SET source_url = ?, expected_size = ?, expected_digest = ?,
				status = 'in_progress', updated_at = datetime('now')
			WHERE id = ?
		`
		if _, err := s.db.Exec(query,
			plan.SourceURL, plan.ExpectedSize, plan.ExpectedDigest, existing.ID); err != nil {
			return nil, err
		}
		existing.SourceURL = plan.SourceURL
		existing.ExpectedSize = plan.ExpectedSize
		existing.ExpectedDigest = plan.ExpectedDigest
		existing.Status = domain.TransferStatusInProgress
		return existing, nil
	}

	transfer := domain.NewTransfer(plan)
	query := `
		INSERT INTO transfers (
			id, destination_path, source_url, expected_size, expected_digest, status
		) VALUES (?, ?, ?, ?, ?, 'in_progress')
		ON CONFLICT(destination_path) DO UPDATE SET
			id = excluded.id,
			source_url = excluded.source_url,
			expected_size = excluded.expected_size,
			expected_digest = excluded.expected_digest,
			status = 'in_progress',
			bytes_downloaded = 0,
			last_error = '',
			updated_at = datetime('now')
	`
	if _, err := s.db.Exec(query,
		transfer.ID, transfer.DestinationPath, transfer.SourceURL,
		transfer.ExpectedSize, transfer.ExpectedDigest); err != nil {
		return nil, err
	}
	return transfer, nil
}

// GetByDestination returns the transfer record for a destination path
func (s *Store) GetByDestination(destination string) (*domain.Transfer, error) {
	query := `
		SELECT id, destination_path, source_url, expected_size, expected_digest,
			   status, bytes_downloaded, last_error, created_at, updated_at
		FROM transfers
		WHERE destination_path = ?
	`
	return s.scanTransfer(s.db.QueryRow(query, destination))
}

// List returns the most recently updated transfers
func (s *Store) List(limit int) ([]*domain.Transfer, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, destination_path, source_url, expected_size, expected_digest,
			   status, bytes_downloaded, last_error, created_at, updated_at
		FROM transfers
		ORDER BY updated_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		t, err := s.scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// UpdateProgress records the cumulative byte count on disk
func (s *Store) UpdateProgress(id string, bytesDownloaded uint64) error {
	return s.update(`
		UPDATE transfers
		SET bytes_downloaded = ?, updated_at = datetime('now')
		WHERE id = ?
	`, bytesDownloaded, id)
}

// MarkCompleted records a successful finish
func (s *Store) MarkCompleted(id string, totalBytes uint64) error {
	return s.update(`
		UPDATE transfers
		SET status = 'completed', bytes_downloaded = ?, last_error = '',
			updated_at = datetime('now')
		WHERE id = ?
	`, totalBytes, id)
}

// MarkFailed records a terminal failure
func (s *Store) MarkFailed(id string, code domain.ExitCode) error {
	return s.update(`
		UPDATE transfers
		SET status = 'failed', last_error = ?, updated_at = datetime('now')
		WHERE id = ?
	`, code.String(), id)
}

// MarkStopped records a cooperative cancellation
func (s *Store) MarkStopped(id string) error {
	return s.update(`
		UPDATE transfers
		SET status = 'stopped', updated_at = datetime('now')
		WHERE id = ?
	`, id)
}

func (s *Store) update(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTransfer(row rowScanner) (*domain.Transfer, error) {
	t := &domain.Transfer{}
	err := row.Scan(
		&t.ID, &t.DestinationPath, &t.SourceURL, &t.ExpectedSize,
		&t.ExpectedDigest, &t.Status, &t.BytesDownloaded, &t.LastError,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
