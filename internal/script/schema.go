/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Kind names a block kind. The values are the node names used by stored documents.
type Kind string

const (
	KindPageHeader  Kind = "pageHeader"
	KindPanelHeader Kind = "panelHeader"
	KindDescription Kind = "description"
	KindCharacter   Kind = "character"
	KindDialogue    Kind = "dialogue"
	KindSfx         Kind = "sfx"
	KindNoCopy      Kind = "noCopy"
	KindCueLabel    Kind = "cueLabel"
	KindCueContent  Kind = "cueContent"
	KindNotes       Kind = "notes"
)

// Cue types carried by cue-bearing blocks.
const (
	CueCharacter = "CHARACTER"
	CueSFX       = "SFX"
	CueNoCopy    = "NO_COPY"
	CueCaption   = "CAPTION"
)

// Kinds lists every block kind in schema order.
var Kinds = []Kind{
	KindPageHeader, KindPanelHeader, KindDescription, KindCharacter, KindDialogue,
	KindSfx, KindNoCopy, KindCueLabel, KindCueContent, KindNotes,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// IsBoundary reports whether Tab/Shift-Tab navigation stops in front of k.
func (k Kind) IsBoundary() bool {
	return k == KindPageHeader || k == KindPanelHeader
}

// HasCueType reports whether blocks of kind k carry a cue type.
func (k Kind) HasCueType() bool {
	return k.DefaultCueType() != ""
}

// DefaultCueType returns the cue type a new block of kind k starts with,
// or "" for kinds without one.
func (k Kind) DefaultCueType() string {
	switch k {
	case KindDialogue:
		return CueCharacter
	case KindSfx:
		return CueSFX
	case KindNoCopy:
		return CueNoCopy
	case KindCueContent:
		return CueCaption
	}
	return ""
}

// Layout is the derived numbering of a block. Only the reconciler writes it.
//   - Page and PanelCount are meaningful on page headers.
//   - PanelNumber is meaningful on panel headers.
type Layout struct {
	Page        int
	PanelCount  int
	PanelNumber int
}

// defaultLayout mirrors the attribute defaults of a freshly created node.
var defaultLayout = Layout{Page: 1, PanelCount: 0, PanelNumber: 1}

// Block is one structural unit of a script document: a single paragraph of
// plain text tagged with its kind.
type Block struct {
	Kind    Kind
	Text    string
	CueType string

	layout Layout
}

// NewBlock returns an empty block of the given kind with default attributes.
func NewBlock(kind Kind) Block {
	return Block{Kind: kind, CueType: kind.DefaultCueType(), layout: defaultLayout}
}

// TextBlock returns a block of the given kind holding text.
func TextBlock(kind Kind, text string) Block {
	b := NewBlock(kind)
	b.Text = text
	return b
}

// Layout returns the derived numbering of the block.
func (b Block) Layout() Layout { return b.layout }

// Page is the derived page number of a page header.
func (b Block) Page() int { return b.layout.Page }

// PanelCount is the derived number of panels on a page header's page.
func (b Block) PanelCount() int { return b.layout.PanelCount }

// PanelNumber is the derived 1-based panel number of a panel header.
func (b Block) PanelNumber() int { return b.layout.PanelNumber }
