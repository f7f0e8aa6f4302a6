// Package storage persists synced catalog snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS libraries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		path TEXT NOT NULL,
		item_count INTEGER DEFAULT 0,
		synced_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		title TEXT NOT NULL,
		year INTEGER,
		path TEXT NOT NULL UNIQUE,
		container TEXT NOT NULL,
		size INTEGER,
		genres TEXT NOT NULL DEFAULT '[]',
		stream_url TEXT NOT NULL DEFAULT '',
		synced_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);

	CREATE TABLE IF NOT EXISTS series (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		name TEXT NOT NULL,
		year INTEGER,
		path TEXT NOT NULL UNIQUE,
		genres TEXT NOT NULL DEFAULT '[]',
		synced_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_series_name ON series(name);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		libraries INTEGER DEFAULT 0,
		movies INTEGER DEFAULT 0,
		series INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Libraries

// ReplaceLibraries swaps the stored library list for libs in one transaction.
func (s *SQLiteStorage) ReplaceLibraries(ctx context.Context, libs []LibraryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM libraries"); err != nil {
		return err
	}
	for _, l := range libs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO libraries (id, name, type, path, item_count, synced_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, l.ID, l.Name, l.Type, l.Path, l.ItemCount, l.SyncedAt); err != nil {
			return fmt.Errorf("insert library %s: %w", l.Path, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) ListLibraries(ctx context.Context) ([]LibraryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, path, item_count, synced_at
		FROM libraries ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []LibraryRecord
	for rows.Next() {
		var l LibraryRecord
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Path, &l.ItemCount, &l.SyncedAt); err != nil {
			return nil, err
		}
		libs = append(libs, l)
	}

	return libs, rows.Err()
}

// Movies

func (s *SQLiteStorage) UpsertMovie(ctx context.Context, m *MovieRecord) error {
	genres, err := encodeGenres(m.Genres)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO movies (id, item_id, title, year, path, container, size, genres, stream_url, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			container = excluded.container,
			size = excluded.size,
			genres = excluded.genres,
			stream_url = excluded.stream_url,
			synced_at = excluded.synced_at
	`, m.ID, m.ItemID, m.Title, m.Year, m.Path, m.Container, m.Size, genres, m.StreamURL, m.SyncedAt)

	return err
}

func (s *SQLiteStorage) ListMovies(ctx context.Context) ([]MovieRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, title, year, path, container, size, genres, stream_url, synced_at
		FROM movies ORDER BY title, path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []MovieRecord
	for rows.Next() {
		var m MovieRecord
		var genres string
		if err := rows.Scan(
			&m.ID, &m.ItemID, &m.Title, &m.Year, &m.Path,
			&m.Container, &m.Size, &genres, &m.StreamURL, &m.SyncedAt,
		); err != nil {
			return nil, err
		}
		if m.Genres, err = decodeGenres(genres); err != nil {
			return nil, fmt.Errorf("movie %s: %w", m.ID, err)
		}
		movies = append(movies, m)
	}

	return movies, rows.Err()
}

// PruneMovies deletes every movie whose id is not in keep and returns how
// many were removed.
func (s *SQLiteStorage) PruneMovies(ctx context.Context, keep []string) (int, error) {
	return s.prune(ctx, "movies", keep)
}

// Series

func (s *SQLiteStorage) UpsertSeries(ctx context.Context, sr *SeriesRecord) error {
	genres, err := encodeGenres(sr.Genres)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series (id, item_id, name, year, path, genres, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			year = excluded.year,
			genres = excluded.genres,
			synced_at = excluded.synced_at
	`, sr.ID, sr.ItemID, sr.Name, sr.Year, sr.Path, genres, sr.SyncedAt)

	return err
}

func (s *SQLiteStorage) ListSeries(ctx context.Context) ([]SeriesRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, name, year, path, genres, synced_at
		FROM series ORDER BY name, path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []SeriesRecord
	for rows.Next() {
		var sr SeriesRecord
		var genres string
		if err := rows.Scan(&sr.ID, &sr.ItemID, &sr.Name, &sr.Year, &sr.Path, &genres, &sr.SyncedAt); err != nil {
			return nil, err
		}
		if sr.Genres, err = decodeGenres(genres); err != nil {
			return nil, fmt.Errorf("series %s: %w", sr.ID, err)
		}
		series = append(series, sr)
	}

	return series, rows.Err()
}

func (s *SQLiteStorage) PruneSeries(ctx context.Context, keep []string) (int, error) {
	return s.prune(ctx, "series", keep)
}

// prune loads the stored ids of table and deletes the ones missing from keep.
func (s *SQLiteStorage) prune(ctx context.Context, table string, keep []string) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM "+table)
	if err != nil {
		return 0, err
	}

	var stale []string
	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if !wanted[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("delete %s %s: %w", table, id, err)
		}
	}

	return len(stale), nil
}

// Sync runs

func (s *SQLiteStorage) StartSyncRun(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, status, started_at) VALUES (?, ?, ?)
	`, id, SyncRunning, startedAt)
	return err
}

// FinishSyncRun stores the final state and counters of run.
func (s *SQLiteStorage) FinishSyncRun(ctx context.Context, run *SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET
			status = ?,
			finished_at = ?,
			libraries = ?,
			movies = ?,
			series = ?,
			removed = ?,
			error = ?
		WHERE id = ?
	`, run.Status, run.FinishedAt, run.Libraries, run.Movies, run.Series, run.Removed, run.Error, run.ID)
	return err
}

// LastSyncRun returns the most recently started run, or nil if none exists.
func (s *SQLiteStorage) LastSyncRun(ctx context.Context) (*SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, started_at, finished_at, libraries, movies, series, removed, error
		FROM sync_runs ORDER BY started_at DESC LIMIT 1
	`)

	var run SyncRun
	var finishedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.Status, &run.StartedAt, &finishedAt,
		&run.Libraries, &run.Movies, &run.Series, &run.Removed, &run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}

func encodeGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	b, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("encode genres: %w", err)
	}
	return string(b), nil
}

func decodeGenres(raw string) ([]string, error) {
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	return genres, nil
}
