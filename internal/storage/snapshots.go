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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"panelscript/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO page_snapshots(page_id, ts, content) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT id, ts, content FROM page_snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, content FROM page_snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM page_snapshots WHERE page_id = ? AND id NOT IN (
	SELECT id FROM page_snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const snapshotPagesSQL = `SELECT DISTINCT page_id FROM page_snapshots`

// snapshotTSLayout is fixed-width so that timestamps sort lexically.
const snapshotTSLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one saved state of a page.
type Snapshot struct {
	ID   int64
	TS   time.Time
	Page domain.ScriptPage
}

// SaveSnapshot records the structured page as it was at ts.
func SaveSnapshot(ctx context.Context, ph *ProjectHandle, pageID string, page domain.ScriptPage, ts time.Time) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	blob, err := json.Marshal(page.Normalized())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertSnapshotSQL, pageID, ts.UTC().Format(snapshotTSLayout), blob)
	return err
}

// GetLatestSnapshot returns the newest snapshot of a page, or ok=false if there is none.
func GetLatestSnapshot(ctx context.Context, ph *ProjectHandle, pageID string) (Snapshot, bool, error) {
	if ph == nil {
		return Snapshot{}, false, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer func() { _ = db.Close() }()
	var (
		id    int64
		tsStr string
		blob  []byte
	)
	err = db.QueryRowContext(ctx, selectLatestSnapshotSQL, pageID).Scan(&id, &tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	s, err := decodeSnapshot(id, tsStr, blob)
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

// ListSnapshots returns up to limit most recent snapshots for a page, newest first.
func ListSnapshots(ctx context.Context, ph *ProjectHandle, pageID string, limit int) ([]Snapshot, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, pageID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var (
			id    int64
			tsStr string
			blob  []byte
		)
		if err := rows.Scan(&id, &tsStr, &blob); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(id, tsStr, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeSnapshot(id int64, tsStr string, blob []byte) (Snapshot, error) {
	s := Snapshot{ID: id}
	if err := json.Unmarshal(blob, &s.Page); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	// A bad timestamp does not make the content unusable.
	s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	return s, nil
}

// PruneOldSnapshots keeps at most keepLast snapshots for the page and deletes older ones.
func PruneOldSnapshots(ctx context.Context, ph *ProjectHandle, pageID string, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, pageID, pageID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneAllSnapshots applies PruneOldSnapshots to every page that has history.
func PruneAllSnapshots(ctx context.Context, ph *ProjectHandle, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, snapshotPagesSQL)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	var total int64
	for _, id := range ids {
		res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, id, id, keepLast)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
