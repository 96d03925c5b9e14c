// Package store writes a report run to a SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/stats"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for one exported run.
type Store struct {
	db *sql.DB
}

// Run describes how a report was produced.
type Run struct {
	Action      string
	Start       time.Time
	End         time.Time
	Timezone    string
	StartHour   int
	EndHour     int
	Requests    int
	Stop        string
	GeneratedAt time.Time
}

var tables = []string{"run", "events", "first_contacts", "shares", "weekly", "weekday", "hourly"}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run (
			action TEXT NOT NULL,
			start_utc TEXT NOT NULL,
			end_utc TEXT NOT NULL,
			timezone TEXT NOT NULL,
			start_hour INTEGER NOT NULL,
			end_hour INTEGER NOT NULL,
			requests INTEGER NOT NULL,
			stop_reason TEXT NOT NULL,
			total_users INTEGER NOT NULL,
			generated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY,
			datetime_utc TEXT NOT NULL,
			datetime_local TEXT NOT NULL,
			hour INTEGER NOT NULL,
			user_id TEXT,
			bucket TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS first_contacts (
			seq INTEGER PRIMARY KEY,
			datetime_utc TEXT NOT NULL,
			datetime_local TEXT NOT NULL,
			hour INTEGER NOT NULL,
			user_id TEXT NOT NULL UNIQUE,
			bucket TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS shares (
			bucket TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			users INTEGER NOT NULL,
			percent REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS weekly (
			iso_year INTEGER NOT NULL,
			iso_week INTEGER NOT NULL,
			label TEXT NOT NULL,
			inside INTEGER NOT NULL,
			outside INTEGER NOT NULL,
			PRIMARY KEY (iso_year, iso_week)
		);`,
		`CREATE TABLE IF NOT EXISTS weekday (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			inside INTEGER NOT NULL,
			outside INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS hourly (
			hour INTEGER PRIMARY KEY,
			inside INTEGER NOT NULL,
			outside INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport replaces the stored run with r in a single transaction.
func (s *Store) WriteReport(ctx context.Context, run Run, r stats.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	generatedAt := run.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO run (action, start_utc, end_utc, timezone, start_hour, end_hour, requests, stop_reason, total_users, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Action,
		run.Start.UTC().Format(time.RFC3339),
		run.End.UTC().Format(time.RFC3339),
		run.Timezone,
		run.StartHour,
		run.EndHour,
		run.Requests,
		run.Stop,
		r.Summary.Total,
		generatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err = insertEvents(ctx, tx, "events", r.Events); err != nil {
		return err
	}
	if err = insertEvents(ctx, tx, "first_contacts", r.FirstContacts); err != nil {
		return err
	}
	if err = insertSummary(ctx, tx, r.Summary); err != nil {
		return err
	}

	return tx.Commit()
}

func insertEvents(ctx context.Context, tx *sql.Tx, table string, events []model.NormalizedEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (seq, datetime_utc, datetime_local, hour, user_id, bucket, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, ev := range events {
		raw, err := json.Marshal(ev.Raw)
		if err != nil {
			return fmt.Errorf("failed to encode raw event: %w", err)
		}
		var user any
		if ev.HasUser {
			user = ev.UserID
		}
		if _, err := stmt.ExecContext(ctx, i,
			ev.UTC.Format(time.RFC3339Nano),
			ev.Local.Format(time.RFC3339Nano),
			ev.Hour,
			user,
			string(ev.Bucket),
			string(raw),
		); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func insertSummary(ctx context.Context, tx *sql.Tx, s model.Summary) error {
	for _, share := range s.Shares {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shares (bucket, label, users, percent) VALUES (?, ?, ?, ?)`,
			string(share.Bucket), share.Label, share.Users, share.Percent); err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	for _, w := range s.Weekly {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weekly (iso_year, iso_week, label, inside, outside) VALUES (?, ?, ?, ?, ?)`,
			w.Year, w.Week, w.Label, w.Counts.Inside, w.Counts.Outside); err != nil {
			return fmt.Errorf("failed to insert week: %w", err)
		}
	}
	for i, d := range s.Weekday {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weekday (position, name, inside, outside) VALUES (?, ?, ?, ?)`,
			i, d.Name, d.Counts.Inside, d.Counts.Outside); err != nil {
			return fmt.Errorf("failed to insert weekday: %w", err)
		}
	}
	for _, h := range s.Hourly {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hourly (hour, inside, outside) VALUES (?, ?, ?)`,
			h.Hour, h.Counts.Inside, h.Counts.Outside); err != nil {
			return fmt.Errorf("failed to insert hour: %w", err)
		}
	}
	return nil
}
