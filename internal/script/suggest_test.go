/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func characterDoc(typed string, names ...string) *Document {
	d := manual(blk(KindPageHeader), blk(KindPanelHeader), TextBlock(KindCharacter, typed))
	d.SetCharacters(names)
	d.MoveCaret(Position{Block: 2, Offset: runeLen(typed)})
	return d
}

func TestSuggestionsRanking(t *testing.T) {
	d := characterDoc("Ann", "ANNABEL", "annie", "Anna", "Bob", "Ann", "anton")
	require.Equal(t, []string{"Ann", "Anna", "annie", "ANNABEL"}, d.Suggestions())
}

func TestSuggestionsCappedAndDeduplicated(t *testing.T) {
	d := characterDoc("a", "Ava", "Abe", "Al", "Amir", "Anya", "Arlo", "Aurora", "AL")
	got := d.Suggestions()
	if len(got) != MaxSuggestions {
		t.Fatalf("expected %d suggestions, got %v", MaxSuggestions, got)
	}
	require.Equal(t, []string{"Al", "Abe", "Ava", "Amir", "Anya"}, got)
}

func TestSuggestionsUseCaseFolding(t *testing.T) {
	d := characterDoc("STRASSE", "Straße", "Stein")
	require.Equal(t, []string{"Straße"}, d.Suggestions())
}

func TestSuggestionsOnlyInCharacterBlocks(t *testing.T) {
	d := manual(blk(KindPageHeader), TextBlock(KindDialogue, "A"))
	d.SetCharacters([]string{"Ann"})
	d.MoveCaret(Position{Block: 1, Offset: 1})
	if s := d.Suggestions(); len(s) != 0 {
		t.Fatalf("expected no suggestions outside character blocks, got %v", s)
	}

	c := characterDoc("An", "Ann")
	c.MoveCaret(Position{Block: 2, Offset: 1})
	if s := c.Suggestions(); len(s) != 0 {
		t.Fatalf("expected no suggestions with the caret inside the prefix, got %v", s)
	}
}

func TestEmptyCharacterBlockSuggestsAll(t *testing.T) {
	d := characterDoc("", "Zed", "Amy", "  ", "Bo")
	require.Equal(t, []string{"Bo", "Amy", "Zed"}, d.Suggestions())
	require.Equal(t, []string{"Zed", "Amy", "Bo"}, d.Characters())
}

func TestAcceptSuggestion(t *testing.T) {
	d := characterDoc("ma", "Maya", "Marcus")
	if !d.AcceptSuggestion(1) {
		t.Fatalf("AcceptSuggestion returned false")
	}
	if d.Block(2).Text != "Marcus" {
		t.Fatalf("unexpected text %q", d.Block(2).Text)
	}
	require.Equal(t, Position{Block: 2, Offset: 6}, d.Caret())
	if d.AcceptSuggestion(7) {
		t.Fatalf("out of range suggestion should fail")
	}
}
