// Package store keeps uploaded scores and extracted outputs on disk and
// indexes them in a SQLite database so they can be fetched by id and
// purged after a retention period.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrTooLarge = errors.New("file exceeds size limit")
)

// Kind tells uploads from outputs.
type Kind string

const (
	KindUpload Kind = "upload"
	KindOutput Kind = "output"
)

// File is one stored document.
type File struct {
	ID        string
	Kind      Kind
	Name      string
	Path      string
	SHA256    string
	Size      int64
	SourceID  string // upload an output was extracted from
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL,
	sha256     TEXT NOT NULL,
	size       INTEGER NOT NULL,
	source_id  TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS files_created_at ON files (created_at);
`

// Store indexes files kept under a data directory.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Open opens or creates the database at dbPath and the data directory.
func Open(ctx context.Context, dbPath, dataDir string) (*Store, error) {
	for _, dir := range []string{dataDir, filepath.Dir(dbPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db, dir: dataDir, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save copies r into the data directory and records it. Reading more than
// maxBytes fails with ErrTooLarge; maxBytes <= 0 means no limit.
func (s *Store) Save(ctx context.Context, kind Kind, name, sourceID string, r io.Reader, maxBytes int64) (*File, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.dir, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	path := filepath.Join(dir, id+".pdf")

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	hash := sha256.New()
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(f, hash), src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("write file: %w", err)
	}

	file := &File{
		ID:        id,
		Kind:      kind,
		Name:      name,
		Path:      path,
		SHA256:    hex.EncodeToString(hash.Sum(nil)),
		Size:      n,
		SourceID:  sourceID,
		CreatedAt: s.now(),
	}
	query := `
		INSERT INTO files (id, kind, name, path, sha256, size, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		file.ID, file.Kind, file.Name, file.Path, file.SHA256,
		file.Size, file.SourceID, file.CreatedAt.UnixMilli(),
	)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return file, nil
}

// Get retrieves a file of the given kind by id.
func (s *Store) Get(ctx context.Context, kind Kind, id string) (*File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `
		SELECT id, kind, name, path, sha256, size, source_id, created_at
		FROM files WHERE id = ? AND kind = ?
	`
	file := &File{}
	var created int64
	err := s.db.QueryRowContext(ctx, query, id, kind).Scan(
		&file.ID, &file.Kind, &file.Name, &file.Path, &file.SHA256,
		&file.Size, &file.SourceID, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}
	file.CreatedAt = time.UnixMilli(created)
	return file, nil
}

// Purge removes every file created more than retention ago and returns
// the removed files. On error the files removed so far are returned.
func (s *Store) Purge(ctx context.Context, retention time.Duration) ([]File, error) {
	cutoff := s.now().Add(-retention).UnixMilli()
	query := `
		SELECT id, kind, name, path, sha256, size, source_id, created_at
		FROM files WHERE created_at < ?
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired files: %w", err)
	}
	var victims []File
	for rows.Next() {
		var f File
		var created int64
		if err := rows.Scan(&f.ID, &f.Kind, &f.Name, &f.Path, &f.SHA256, &f.Size, &f.SourceID, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired file: %w", err)
		}
		f.CreatedAt = time.UnixMilli(created)
		victims = append(victims, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query expired files: %w", err)
	}

	var removed []File
	for _, v := range victims {
		if err := os.Remove(v.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", v.ID, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, v.ID); err != nil {
			return removed, fmt.Errorf("delete %s: %w", v.ID, err)
		}
		removed = append(removed, v)
	}
	return removed, nil
}

// Janitor purges expired files every interval until ctx is canceled.
// onPurge, when set, receives each non-empty batch of removed files.
func (s *Store) Janitor(ctx context.Context, interval, retention time.Duration, log zerolog.Logger, onPurge func(context.Context, []File)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Purge(ctx, retention)
			if err != nil {
				log.Warn().Err(err).Msg("Purge failed")
			}
			if len(removed) == 0 {
				continue
			}
			log.Info().Int("removed", len(removed)).Msg("Purged expired files")
			if onPurge != nil {
				onPurge(ctx, removed)
			}
		}
	}
}
