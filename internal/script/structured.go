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
	"sort"
	"strings"

	"panelscript/internal/domain"
)

// ToStructured converts blocks into the portable page form.
//
// Page number and panel count come from the first page header (1 and 0 when
// there is none). Each panel header opens a panel; description text is
// appended to the panel header with ": ". A cue label is held until the next
// dialogue, sfx or cue content block, which emits a cue and clears it. Cue
// content without a pending label is skipped. Character and no-copy blocks,
// and anything before the first panel header, are not part of the output.
func ToStructured(blocks []Block) domain.ScriptPage {
	page := domain.ScriptPage{Page: 1, Panels: []domain.Panel{}}
	for _, b := range blocks {
		if b.Kind == KindPageHeader {
			if b.layout.Page > 0 {
				page.Page = b.layout.Page
			}
			page.PanelCount = b.layout.PanelCount
			break
		}
	}

	var cur *domain.Panel
	label := ""
	flush := func() {
		if cur != nil {
			page.Panels = append(page.Panels, *cur)
		}
	}
	for _, b := range blocks {
		switch b.Kind {
		case KindPanelHeader:
			flush()
			n := b.layout.PanelNumber
			if n < 1 {
				n = len(page.Panels) + 1
			}
			cur = &domain.Panel{PanelNumber: n, Header: b.Text, Cues: []domain.Cue{}}
			label = ""
		case KindDescription:
			if cur == nil || b.Text == "" {
				continue
			}
			if cur.Header != "" {
				cur.Header += ": " + b.Text
			} else {
				cur.Header = b.Text
			}
		case KindCueLabel:
			if cur != nil {
				label = b.Text
			}
		case KindDialogue, KindSfx, KindCueContent:
			if cur == nil || label == "" {
				continue
			}
			cur.Cues = append(cur.Cues, domain.Cue{Type: b.CueType, Label: label, Content: b.Text})
			label = ""
		case KindNotes:
			if cur != nil {
				cur.Notes = b.Text
			}
		}
	}
	flush()

	if page.PanelCount == 0 {
		page.PanelCount = len(page.Panels)
	}
	return page
}

// FromStructured builds the block sequence for a stored page. Derived
// attributes are seeded from the page and are corrected by the next
// reconciliation.
func FromStructured(p domain.ScriptPage) []Block {
	ph := NewBlock(KindPageHeader)
	if p.Page > 0 {
		ph.layout.Page = p.Page
	}
	ph.layout.PanelCount = p.PanelCount
	blocks := []Block{ph}

	panels := make([]domain.Panel, len(p.Panels))
	copy(panels, p.Panels)
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].PanelNumber < panels[j].PanelNumber })

	for _, pn := range panels {
		title, rest, _ := strings.Cut(pn.Header, ":")
		h := TextBlock(KindPanelHeader, strings.TrimSpace(title))
		if pn.PanelNumber > 0 {
			h.layout.PanelNumber = pn.PanelNumber
		}
		blocks = append(blocks, h)
		if desc := strings.TrimSpace(rest); desc != "" {
			blocks = append(blocks, TextBlock(KindDescription, desc))
		}
		for _, c := range pn.Cues {
			blocks = append(blocks, TextBlock(KindCueLabel, c.Label))
			kind := KindCueContent
			switch c.Type {
			case CueSFX:
				kind = KindSfx
			case CueCharacter:
				kind = KindDialogue
			}
			cb := TextBlock(kind, c.Content)
			cb.CueType = c.Type
			blocks = append(blocks, cb)
		}
		if pn.Notes != "" {
			blocks = append(blocks, TextBlock(KindNotes, pn.Notes))
		}
	}
	return blocks
}

// IssueKind classifies a structural problem found by Validate.
type IssueKind string

const (
	// IssueMalformedDocument: a panel header precedes every page header.
	IssueMalformedDocument IssueKind = "malformed_document"
	// IssueMissingLabel: cue content has no cue label in front of it.
	IssueMissingLabel IssueKind = "missing_label"
	// IssueOutsidePanel: content appears before the first panel header.
	IssueOutsidePanel IssueKind = "outside_panel"
	// IssueNotExported: text in a block kind the structured form has no slot for.
	IssueNotExported IssueKind = "not_exported"
)

// Issue is one finding of Validate. Block is the index of the offending block.
type Issue struct {
	Kind    IssueKind
	Block   int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("block %d: %s: %s", i.Block, i.Kind, i.Message)
}

// Validate reports the blocks whose text ToStructured would drop or that the
// scanner ignores. Empty blocks are never reported.
func Validate(blocks []Block) []Issue {
	var issues []Issue
	for _, i := range orphanPanels(blocks) {
		issues = append(issues, Issue{Kind: IssueMalformedDocument, Block: i, Message: "panel header before the first page header"})
	}
	inPanel := false
	label := ""
	for i, b := range blocks {
		switch b.Kind {
		case KindPageHeader:
			continue
		case KindPanelHeader:
			inPanel = true
			label = ""
			continue
		}
		if !inPanel {
			if b.Text != "" {
				issues = append(issues, Issue{Kind: IssueOutsidePanel, Block: i, Message: fmt.Sprintf("%s outside any panel", b.Kind)})
			}
			continue
		}
		switch b.Kind {
		case KindCueLabel:
			label = b.Text
		case KindDialogue, KindSfx, KindCueContent:
			if label == "" && b.Text != "" {
				issues = append(issues, Issue{Kind: IssueMissingLabel, Block: i, Message: fmt.Sprintf("%s without a cue label", b.Kind)})
			}
			label = ""
		case KindCharacter, KindNoCopy:
			if b.Text != "" {
				issues = append(issues, Issue{Kind: IssueNotExported, Block: i, Message: fmt.Sprintf("%s text is not part of the structured page", b.Kind)})
			}
		}
	}
	return issues
}
