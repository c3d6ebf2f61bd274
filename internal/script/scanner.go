/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// PageInfo is the scan result for one page header.
type PageInfo struct {
	PagePosition   int   // block index of the page header
	PageNumber     int   // 1-based
	PanelCount     int   // == len(PanelPositions)
	PanelPositions []int // block indexes of the page's panel headers, in order
}

// Scan walks the blocks once and groups panel headers under the page header
// that precedes them. Panel headers before the first page header belong to no
// page and are left out. Scan has no side effects.
func Scan(blocks []Block) []PageInfo {
	pages := []PageInfo{}
	for i, b := range blocks {
		switch b.Kind {
		case KindPageHeader:
			pages = append(pages, PageInfo{
				PagePosition:   i,
				PageNumber:     len(pages) + 1,
				PanelPositions: []int{},
			})
		case KindPanelHeader:
			if len(pages) == 0 {
				continue
			}
			cur := &pages[len(pages)-1]
			cur.PanelPositions = append(cur.PanelPositions, i)
			cur.PanelCount = len(cur.PanelPositions)
		}
	}
	return pages
}

// orphanPanels returns the indexes of panel headers that precede every page header.
func orphanPanels(blocks []Block) []int {
	var out []int
	for i, b := range blocks {
		if b.Kind == KindPageHeader {
			break
		}
		if b.Kind == KindPanelHeader {
			out = append(out, i)
		}
	}
	return out
}

// SplitPages cuts blocks at every page header using Scan. Each chunk starts
// with its page header; blocks before the first page header are dropped.
func SplitPages(blocks []Block) [][]Block {
	pages := Scan(blocks)
	out := make([][]Block, 0, len(pages))
	for i, p := range pages {
		end := len(blocks)
		if i+1 < len(pages) {
			end = pages[i+1].PagePosition
		}
		out = append(out, cloneBlocks(blocks[p.PagePosition:end]))
	}
	return out
}
