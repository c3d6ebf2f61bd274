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
	"strings"
)

// SearchQuery describes a search over the indexed pages.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Title and Character are case-insensitive substring filters.
// PageFrom/To are inclusive page numbers; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Title     string
	Character string
	PageFrom  int
	PageTo    int
	Limit     int
	Offset    int
}

// SearchResult represents a single matching page.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	PageID     string
	Title      string
	PageNumber int
	Snippet    string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a plain scan with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT p.page_id, p.title, p.page_number, snippet(fts_pages, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_pages JOIN page_text p ON fts_pages.rowid = p.doc_id\n")
		sb.WriteString("WHERE fts_pages MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT p.page_id, p.title, p.page_number, ''\n")
		sb.WriteString("FROM page_text p\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Title); s != "" {
		sb.WriteString(" AND lower(p.title) LIKE ?\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	// Character names are stored upper-case on their own line.
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND lower(p.text) LIKE ?\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		sb.WriteString(" AND p.page_number BETWEEN ? AND ?\n")
		args = append(args, q.PageFrom, q.PageTo)
	} else if q.PageFrom > 0 {
		sb.WriteString(" AND p.page_number >= ?\n")
		args = append(args, q.PageFrom)
	} else if q.PageTo > 0 {
		sb.WriteString(" AND p.page_number <= ?\n")
		args = append(args, q.PageTo)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY p.page_number, p.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.PageID, &r.Title, &r.PageNumber, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }
