/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// applyLayout writes the numbering described by pages into blocks and reports
// whether any block changed.
func applyLayout(blocks []Block, pages []PageInfo) bool {
	changed := false
	for _, p := range pages {
		ph := &blocks[p.PagePosition]
		if ph.layout.Page != p.PageNumber || ph.layout.PanelCount != p.PanelCount {
			ph.layout.Page = p.PageNumber
			ph.layout.PanelCount = p.PanelCount
			changed = true
		}
		for j, pos := range p.PanelPositions {
			if blocks[pos].layout.PanelNumber != j+1 {
				blocks[pos].layout.PanelNumber = j + 1
				changed = true
			}
		}
	}
	return changed
}

// Reconcile recomputes page numbers, panel counts and panel numbers from a
// fresh scan and writes them back. Listeners are notified only when something
// changed. Running it twice in a row leaves the document untouched.
func Reconcile(d *Document) bool {
	if !applyLayout(d.blocks, Scan(d.blocks)) {
		return false
	}
	d.revision++
	d.notify(ReasonReconcile)
	return true
}
