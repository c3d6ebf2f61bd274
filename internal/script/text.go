/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"
)

// BlockSeparator joins block texts in the flattened plain text.
const BlockSeparator = "\n\n"

// PlainText flattens the document text in block order.
func PlainText(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, BlockSeparator)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Title derives a display title: the first non-empty page or panel header
// text, else "Page N" for the first page number.
func Title(blocks []Block) string {
	page := 1
	seenPage := false
	for _, b := range blocks {
		if b.Kind != KindPageHeader && b.Kind != KindPanelHeader {
			continue
		}
		if b.Kind == KindPageHeader && !seenPage {
			seenPage = true
			if b.layout.Page > 0 {
				page = b.layout.Page
			}
		}
		if t := strings.TrimSpace(b.Text); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Page %d", page)
}
