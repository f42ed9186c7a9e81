// Package journal keeps a SQLite record of ticket changes.
//
// Every create, update and delete the ticket store performs is appended as
// one entry. The journal backs the mdt://journal/recent resource and lets
// an assistant see what changed since it last looked. It is an auxiliary
// subsystem: when it cannot be opened the server runs without it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DefaultRetention is how many entries are kept when Options leaves it 0.
const DefaultRetention = 5000

// Entry is one recorded change.
type Entry struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Project string    `json:"project"`
	Key     string    `json:"key"`
	Title   string    `json:"title"`
	Status  string    `json:"status,omitempty"`
	Fields  []string  `json:"fields,omitempty"`
	At      time.Time `json:"at"`
}

// Options configures Open.
type Options struct {
	// Retention caps the number of stored entries; older ones are pruned.
	Retention int
}

// Journal is safe for concurrent use.
type Journal struct {
	db        *sql.DB
	retention int
	logger    *zap.Logger
}

// Open opens or creates the journal database at path.
func Open(path string, opts Options, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db, retention: opts.Retention, logger: logger.Named("journal")}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    NOT NULL UNIQUE,
			kind       TEXT    NOT NULL,
			project    TEXT    NOT NULL,
			ticket_key TEXT    NOT NULL,
			title      TEXT    NOT NULL DEFAULT '',
			status     TEXT    NOT NULL DEFAULT '',
			fields     TEXT    NOT NULL DEFAULT '',
			at         TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_project ON entries(project, seq DESC);
		CREATE INDEX IF NOT EXISTS idx_entries_key     ON entries(ticket_key, seq DESC);
	`)
	return err
}

// Append stores e and prunes entries beyond the retention limit. The
// returned entry carries its generated ID.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (id, kind, project, ticket_key, title, status, fields, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Project, e.Key, e.Title, e.Status,
		strings.Join(e.Fields, "\n"), e.At.Format(time.RFC3339Nano),
	); err != nil {
		return Entry{}, fmt.Errorf("journal: insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE seq <= (SELECT MAX(seq) FROM entries) - ?`,
		j.retention,
	); err != nil {
		return Entry{}, fmt.Errorf("journal: prune: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("journal: commit: %w", err)
	}
	return e, nil
}

// Recent returns the newest entries first. An empty project matches all
// projects; limit <= 0 means 20.
func (j *Journal) Recent(ctx context.Context, project string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, kind, project, ticket_key, title, status, fields, at FROM entries`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)
	return j.query(ctx, query, args...)
}

// History returns every entry for one ticket key, oldest first.
func (j *Journal) History(ctx context.Context, key string) ([]Entry, error) {
	return j.query(ctx,
		`SELECT id, kind, project, ticket_key, title, status, fields, at
		 FROM entries WHERE ticket_key = ? ORDER BY seq ASC`, key)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var fields, at string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Project, &e.Key, &e.Title, &e.Status, &fields, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		if fields != "" {
			e.Fields = strings.Split(fields, "\n")
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			j.logger.Warn("unparseable journal timestamp", zap.String("id", e.ID), zap.String("at", at))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
