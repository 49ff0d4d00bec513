// Package infra implements infrastructure concerns (journal,
// registry, notifications, key storage).
package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/clipguard/clipguard/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const journalDBName = "journal.db"

// EncryptedJournal implements domain.WarningJournal using a SQLCipher
// encrypted SQLite database. Warnings reveal the user's app-to-app
// copy habits, so they are stored encrypted at rest.
type EncryptedJournal struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedJournal opens (or creates) the encrypted journal in
// dataDir. The key is passed as the SQLCipher passphrase via PRAGMA.
func NewEncryptedJournal(dataDir string, key []byte) (*EncryptedJournal, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, journalDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted journal: %w", err)
	}

	// Verify the key actually decrypts the file.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted journal: %w", err)
	}

	j := &EncryptedJournal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

func (j *EncryptedJournal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		dest_id TEXT NOT NULL DEFAULT '',
		dest_name TEXT NOT NULL DEFAULT '',
		blocked INTEGER NOT NULL,
		fallback INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS warnings_at ON warnings (at DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends a warning.
func (j *EncryptedJournal) Record(w domain.PasteWarning) error {
	_, err := j.db.Exec(`
		INSERT INTO warnings (source_id, source_name, dest_id, dest_name, blocked, fallback, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.Source.ID, w.Source.Name,
		w.Destination.ID, w.Destination.Name,
		boolToInt(w.Blocked), boolToInt(w.Fallback),
		time.Now().Unix(),
	)
	return err
}

// Recent returns up to limit warnings, newest first.
func (j *EncryptedJournal) Recent(limit int) ([]domain.WarningRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT source_id, source_name, dest_id, dest_name, blocked, fallback, at
		FROM warnings ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.WarningRecord
	for rows.Next() {
		var rec domain.WarningRecord
		var blocked, fallback int
		var at int64
		if err := rows.Scan(
			&rec.Source.ID, &rec.Source.Name,
			&rec.Destination.ID, &rec.Destination.Name,
			&blocked, &fallback, &at,
		); err != nil {
			return nil, err
		}
		rec.Blocked = blocked != 0
		rec.Fallback = fallback != 0
		rec.At = time.Unix(at, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Path returns the journal file path.
func (j *EncryptedJournal) Path() string {
	return j.dbPath
}

// Close releases the database connection.
func (j *EncryptedJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure EncryptedJournal implements domain.WarningJournal.
var _ domain.WarningJournal = (*EncryptedJournal)(nil)
