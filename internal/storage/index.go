/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"panelscript/internal/domain"
	applog "panelscript/internal/log"
	"panelscript/internal/script"
	"panelscript/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project ephemeral/index data under the project root.
	IndexDirName  = ".panelscript"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the project's embedded index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at .panelscript/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers close it when no longer needed.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(projectRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and is migrated forward below.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations holds the statements that move the schema from version n-1 to n.
var migrations = map[int][]string{
	2: {
		`CREATE INDEX IF NOT EXISTS idx_page_text_number ON page_text(page_number);`,
		`CREATE INDEX IF NOT EXISTS idx_page_snapshots_page_ts ON page_snapshots(page_id, ts);`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the page text table, its FTS index and the page history table.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS page_text (
			doc_id      INTEGER PRIMARY KEY,
			page_id     TEXT    NOT NULL UNIQUE,
			title       TEXT    NOT NULL,
			page_number INTEGER NOT NULL,
			text        TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL
		);`,
		// External-content FTS5 index fed from page_text via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_pages USING fts5(
			text,
			content='page_text',
			content_rowid='doc_id',
			tokenize = 'unicode61'
		);`,
		// Page history: one row per save.
		`CREATE TABLE IF NOT EXISTS page_snapshots (
			id      INTEGER PRIMARY KEY,
			page_id TEXT    NOT NULL,
			ts      TEXT    NOT NULL,
			content BLOB    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS page_text_ai AFTER INSERT ON page_text BEGIN
			INSERT INTO fts_pages(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS page_text_ad AFTER DELETE ON page_text BEGIN
			INSERT INTO fts_pages(fts_pages, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS page_text_au AFTER UPDATE OF text ON page_text BEGIN
			INSERT INTO fts_pages(fts_pages, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_pages(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// language=SQL
// dialect=SQLite
const upsertPageTextSQL = `INSERT INTO page_text(page_id, title, page_number, text, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(page_id) DO UPDATE SET
	title = excluded.title,
	page_number = excluded.page_number,
	text = excluded.text,
	updated_at = excluded.updated_at`

// pageIndexText flattens a structured page the way the editor flattens its document.
func pageIndexText(page domain.ScriptPage) string {
	return script.PlainText(script.FromStructured(page))
}

// IndexPage stores the searchable text of one page.
func IndexPage(ctx context.Context, projectRoot string, ref domain.PageRef, page domain.ScriptPage) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return indexPageDB(ctx, db, ref, page)
}

func indexPageDB(ctx context.Context, db *sql.DB, ref domain.PageRef, page domain.ScriptPage) error {
	_, err := db.ExecContext(ctx, upsertPageTextSQL, ref.ID, ref.Title, page.Page, pageIndexText(page), ref.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("index page %s: %w", ref.ID, err)
	}
	return nil
}

// RemovePageFromIndex drops the text and history of a deleted page.
func RemovePageFromIndex(ctx context.Context, projectRoot, pageID string) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(ctx, `DELETE FROM page_text WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("unindex page %s: %w", pageID, err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM page_snapshots WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("drop history of %s: %w", pageID, err)
	}
	return nil
}

// RebuildIndex repopulates the page text index from the page files. History is kept.
// Pages that fail to load are skipped and reported in the returned error after the rest are indexed.
func RebuildIndex(ctx context.Context, ph *ProjectHandle) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_rebuild")
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_text`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear page_text: %w", err)
	}
	var failed []error
	for _, ref := range ph.Project.Pages {
		pf, err := ReadPage(ph, ref.ID)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertPageTextSQL, ref.ID, ref.Title, pf.PageContent.Page, pageIndexText(pf.PageContent), ref.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("index page %s: %w", ref.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO fts_pages(fts_pages) VALUES('optimize')`); err != nil {
		l.Debug("fts optimize failed", slog.Any("err", err))
	}
	l.Info("index rebuilt", slog.Int("pages", len(ph.Project.Pages)-len(failed)), slog.Int("failed", len(failed)))
	return errors.Join(failed...)
}

// DetectAndRebuildIndex checks the index for corruption and rebuilds it from scratch if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, ph *ProjectHandle) (bool, error) {
	path := IndexPath(ph.Root)
	db, err := InitOrOpenIndex(ph.Root)
	if err == nil {
		var chk string
		qerr := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk)
		_ = db.Close()
		if qerr == nil && strings.Contains(strings.ToLower(chk), "ok") {
			return false, nil
		}
	}
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	if err := RebuildIndex(ctx, ph); err != nil {
		return true, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
