package commit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // import for registration side-effect.
)

const createCommitsTable = `
CREATE TABLE IF NOT EXISTS log_commits (
	generation INTEGER PRIMARY KEY AUTOINCREMENT,
	blob       BLOB    NOT NULL,
	written_at INTEGER NOT NULL
);`

// SQLiteCommitManager persists the recovery record as successive rows in a
// SQLite table, keyed by an auto-incrementing generation so the newest
// record can be fetched without scanning history.
type SQLiteCommitManager struct {
	db *sql.DB
}

// OpenSQLiteCommitManager opens (creating if necessary) the SQLite database
// at path and ensures the commits table exists.
func OpenSQLiteCommitManager(path string) (*SQLiteCommitManager, error) {
	var db, err = sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("commit: opening sqlite commit store: %w", err)
	}
	if _, err = db.Exec(createCommitsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("commit: creating commits table: %w", err)
	}
	return &SQLiteCommitManager{db: db}, nil
}

func (m *SQLiteCommitManager) Commit(ctx context.Context, beginAddress, flushedUntilAddress int64) error {
	var record = RecoveryRecord{BeginAddress: beginAddress, FlushedUntilAddress: flushedUntilAddress}
	var _, err = m.db.ExecContext(ctx,
		`INSERT INTO log_commits (blob, written_at) VALUES (?, strftime('%s','now'))`,
		record.Encode())
	if err != nil {
		return fmt.Errorf("commit: writing recovery record: %w", err)
	}
	return nil
}

func (m *SQLiteCommitManager) GetCommitMetadata(ctx context.Context) (*RecoveryRecord, error) {
	var blob []byte
	var err = m.db.QueryRowContext(ctx,
		`SELECT blob FROM log_commits ORDER BY generation DESC LIMIT 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("commit: reading recovery record: %w", err)
	}

	var record, decodeErr = DecodeRecoveryRecord(blob)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return &record, nil
}

// Close releases the underlying database handle.
func (m *SQLiteCommitManager) Close() error { return m.db.Close() }

var _ Manager = (*SQLiteCommitManager)(nil)
