package assets

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Manifest is the persistent record of staged assets. It survives across
// runs, so a re-run against unchanged input downloads nothing: that is what
// makes the pipeline idempotent on the asset side.
type Manifest struct {
	db *sql.DB
}

func OpenManifest(path string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir manifest dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS assets (
			origin_url  TEXT PRIMARY KEY,
			staged_path TEXT NOT NULL,
			size        INTEGER NOT NULL,
			checksum    TEXT NOT NULL,
			fetched_at  TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init manifest schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// Lookup returns the recorded descriptor for a URL, if any.
func (m *Manifest) Lookup(originURL string) (*Descriptor, bool) {
	var d Descriptor
	err := m.db.QueryRow(
		`SELECT origin_url, staged_path, size, checksum FROM assets WHERE origin_url = ?`,
		originURL,
	).Scan(&d.OriginURL, &d.StagedPath, &d.Size, &d.Checksum)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// Record upserts a staged asset.
func (m *Manifest) Record(d *Descriptor) error {
	_, err := m.db.Exec(
		`INSERT INTO assets (origin_url, staged_path, size, checksum, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(origin_url) DO UPDATE SET
			staged_path = excluded.staged_path,
			size        = excluded.size,
			checksum    = excluded.checksum,
			fetched_at  = excluded.fetched_at`,
		d.OriginURL, d.StagedPath, d.Size, d.Checksum, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record asset: %w", err)
	}
	return nil
}

func checksumFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
