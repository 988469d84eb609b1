// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying migrations from the embedded assets/migrations (idempotent,
//     recorded in _migrations).
//   - Reading and writing the games table.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/assets"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is a Store backed by a SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// openDB ensures the parent directory exists, then opens the file with a
// busy timeout, WAL journaling and enforced foreign keys.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies every *.sql file of migrations in lexical order,
// skipping files already recorded in _migrations. Each file runs in its
// own transaction.
func migrate(db *sql.DB, migrations fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := fs.ReadFile(migrations, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(sqlBytes)) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

func (s *SQLite) Start(ctx context.Context, r Record) error {
	if r.Outcome == "" {
		r.Outcome = OutcomePlaying
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO games (id, game_id, puzzle_id, started_at, outcome, questions, attempts)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GameID, r.PuzzleID, r.StartedAt.UTC().Format(timeLayout), string(r.Outcome),
		r.Questions, r.Attempts,
	)
	return err
}

func (s *SQLite) Finish(ctx context.Context, id string, outcome Outcome, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET outcome=?, finished_at=? WHERE id=?`,
		string(outcome), at.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *SQLite) Bump(ctx context.Context, id string, c Counter) error {
	var q string
	switch c {
	case CounterQuestions:
		q = `UPDATE games SET questions = questions + 1 WHERE id=?`
	case CounterAttempts:
		q = `UPDATE games SET attempts = attempts + 1 WHERE id=?`
	default:
		return fmt.Errorf("unknown counter %q", c)
	}
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, game_id, puzzle_id, started_at, COALESCE(finished_at, ''), outcome, questions, attempts
        FROM games
        ORDER BY started_at DESC, rowid DESC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			r                 Record
			started, finished string
			outcome           string
		)
		if err := rows.Scan(&r.ID, &r.GameID, &r.PuzzleID, &started, &finished, &outcome, &r.Questions, &r.Attempts); err != nil {
			return nil, err
		}
		r.Outcome = Outcome(outcome)
		r.StartedAt = mustParse(started)
		if finished != "" {
			t := mustParse(finished)
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
