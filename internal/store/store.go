// Package store persists captured subtitles in a local sqlite database.
// The expected cardinality is low (tens to low hundreds of captures per
// session), so the access patterns stay deliberately simple.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Store struct {
	db       *sql.DB
	notifier *Notifier
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, notifier: NewNotifier()}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Notifier exposes the new-capture event feed.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Append inserts a capture unless one with the same name or source URL
// already exists. Duplicates are not an error: the bool reports whether the
// record was actually inserted. Successful inserts publish a new-capture
// notification.
func (s *Store) Append(ctx context.Context, capture *Capture) (bool, error) {
	if capture == nil {
		return false, fmt.Errorf("capture is nil")
	}
	if capture.Name == "" || capture.SourceURL == "" {
		return false, fmt.Errorf("capture name and source url are required")
	}
	if capture.ID == "" {
		capture.ID = uuid.NewString()
	}
	if capture.CapturedAt == 0 {
		capture.CapturedAt = time.Now().UnixMilli()
	}
	if capture.SizeBytes == 0 {
		capture.SizeBytes = int64(len(capture.Data))
	}

	var existing int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM captures WHERE name = ? OR source_url = ?`,
		capture.Name,
		capture.SourceURL,
	).Scan(&existing); err != nil {
		return false, fmt.Errorf("check duplicates: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO captures (id, name, source_url, data, size_bytes, language, format, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		capture.ID,
		capture.Name,
		capture.SourceURL,
		base64.StdEncoding.EncodeToString(capture.Data),
		capture.SizeBytes,
		capture.Language,
		capture.Format,
		capture.CapturedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert capture: %w", err)
	}

	s.notifier.Publish(Notification{Name: capture.Name})
	return true, nil
}

// List returns all captures, newest first, without payload data.
func (s *Store) List(ctx context.Context) ([]Capture, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, source_url, size_bytes, language, format, captured_at
		 FROM captures
		 ORDER BY captured_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Capture, 0)
	for rows.Next() {
		var item Capture
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.SourceURL,
			&item.SizeBytes,
			&item.Language,
			&item.Format,
			&item.CapturedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Get loads one capture by name, payload included.
func (s *Store) Get(ctx context.Context, name string) (Capture, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, source_url, data, size_bytes, language, format, captured_at
		 FROM captures
		 WHERE name = ?`,
		name,
	)

	var item Capture
	var encoded string
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.SourceURL,
		&encoded,
		&item.SizeBytes,
		&item.Language,
		&item.Format,
		&item.CapturedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return Capture{}, false, nil
		}
		return Capture{}, false, err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Capture{}, false, fmt.Errorf("decode capture payload: %w", err)
	}
	item.Data = data
	return item, true, nil
}

// Clear empties the capture collection.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM captures`)
	return err
}

// Stats reports the number of captures and their total decoded size.
func (s *Store) Stats(ctx context.Context) (count int, totalBytes int64, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM captures`)
	if err := row.Scan(&count, &totalBytes); err != nil {
		return 0, 0, err
	}
	return count, totalBytes, nil
}
