/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"strings"

	"panelscript/internal/storage"
)

// SearchPG searches the project's pages using the Postgres tsvector column and
// returns results in the same shape as the local index search.
func (r *PageRepository) SearchPG(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if strings.TrimSpace(q.Text) != "" {
		tq := place(q.Text)
		b.WriteString("SELECT p.id, p.title, p.page_number, ")
		b.WriteString("COALESCE(ts_headline('simple', p.raw_text, plainto_tsquery('simple', " + tq + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM pages p WHERE p.project_id = " + place(r.projectID) + " AND p.search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT p.id, p.title, p.page_number, '' FROM pages p WHERE p.project_id = " + place(r.projectID) + " ")
	}
	if s := strings.TrimSpace(q.Title); s != "" {
		b.WriteString(" AND lower(p.title) LIKE " + place("%"+strings.ToLower(s)+"%") + " ")
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		b.WriteString(" AND lower(p.raw_text) LIKE " + place("%"+strings.ToLower(s)+"%") + " ")
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		b.WriteString(" AND p.page_number BETWEEN " + place(q.PageFrom) + " AND " + place(q.PageTo) + " ")
	} else if q.PageFrom > 0 {
		b.WriteString(" AND p.page_number >= " + place(q.PageFrom) + " ")
	} else if q.PageTo > 0 {
		b.WriteString(" AND p.page_number <= " + place(q.PageTo) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY p.page_number, p.created_at, p.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var res storage.SearchResult
		if err := rows.Scan(&res.PageID, &res.Title, &res.PageNumber, &res.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
