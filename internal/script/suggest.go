/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// MaxSuggestions caps the candidate list offered for a character block.
const MaxSuggestions = 5

// SetCharacters replaces the character names offered as suggestions.
func (d *Document) SetCharacters(names []string) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	d.characters = out
}

// Characters returns the suggestion source list.
func (d *Document) Characters() []string {
	out := make([]string, len(d.characters))
	copy(out, d.characters)
	return out
}

// Suggestions returns the character names matching the text typed into the
// current character block. It is empty unless the caret sits at the end of a
// character block.
func (d *Document) Suggestions() []string {
	c := d.sel.Head
	b := d.blocks[c.Block]
	if b.Kind != KindCharacter || c.Offset != runeLen(b.Text) {
		return nil
	}
	return rankNames(d.characters, b.Text, MaxSuggestions)
}

// AcceptSuggestion replaces the typed prefix with the i-th suggestion.
func (d *Document) AcceptSuggestion(i int) bool {
	s := d.Suggestions()
	if i < 0 || i >= len(s) {
		return false
	}
	c := d.sel.Head
	d.blocks[c.Block].Text = s[i]
	d.setCaret(Position{Block: c.Block, Offset: runeLen(s[i])})
	d.finish(ReasonSuggestion, true)
	return true
}

type candidate struct {
	name  string
	score int
}

// rankNames filters names by case-insensitive prefix and orders them: exact
// match first, then case-sensitive prefix matches, then shorter names, then
// alphabetically. Names equal under case folding are offered once.
func rankNames(names []string, prefix string, limit int) []string {
	fold := cases.Fold()
	fp := fold.String(strings.TrimSpace(prefix))
	seen := map[string]bool{}
	var cands []candidate
	for _, n := range names {
		fn := fold.String(n)
		if seen[fn] || !strings.HasPrefix(fn, fp) {
			continue
		}
		seen[fn] = true
		score := 2
		switch {
		case fn == fp:
			score = 0
		case strings.HasPrefix(n, prefix):
			score = 1
		}
		cands = append(cands, candidate{name: n, score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if la, lb := runeLen(a.name), runeLen(b.name); la != lb {
			return la < lb
		}
		return a.name < b.name
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}
