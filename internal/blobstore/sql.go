package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"codeworkspace/internal/metrics"
)

type dialect struct {
	name    string
	driver  string
	pragmas []string
	schema  string
	load    string
	upsert  string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	// WAL allows readers during a write; NORMAL sync is safe against app crashes.
	pragmas: []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	},
	schema: `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	load: "SELECT data FROM blobs WHERE key = ?",
	upsert: `INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
}

var postgresDialect = dialect{
	name:   "postgres",
	driver: "postgres",
	schema: `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	load: "SELECT data FROM blobs WHERE key = $1",
	upsert: `INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
}

// SQL stores blobs in a single "blobs" table. Each Save is one upsert, so a
// reader sees the previous or the new value, never a mix.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	return openSQL(ctx, sqliteDialect, path)
}

// OpenPostgres connects to Postgres using a lib/pq DSN or URL.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	return openSQL(ctx, postgresDialect, dsn)
}

func openSQL(ctx context.Context, d dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.name, err)
	}
	if d.name == sqliteDialect.name {
		// One writer connection avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.name, err)
	}
	for _, pragma := range d.pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %s: %w", d.name, pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: create schema: %w", d.name, err)
	}
	slog.Debug("[DEBUG-STORE] sql blob backend ready", "dialect", d.name)
	return &SQL{db: db, dialect: d}, nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.load, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordBlobOperation(s.Type(), "load", true)
		return nil, nil
	}
	if err != nil {
		metrics.RecordBlobOperation(s.Type(), "load", false)
		return nil, fmt.Errorf("%s: load %s: %w", s.dialect.name, key, err)
	}
	metrics.RecordBlobOperation(s.Type(), "load", true)
	return data, nil
}

func (s *SQL) Save(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, data); err != nil {
		metrics.RecordBlobOperation(s.Type(), "save", false)
		return fmt.Errorf("%s: save %s: %w", s.dialect.name, key, err)
	}
	metrics.RecordBlobOperation(s.Type(), "save", true)
	return nil
}

func (s *SQL) Type() string { return s.dialect.name }

func (s *SQL) Close() error {
	return s.db.Close()
}
