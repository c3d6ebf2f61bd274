/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "strings"

// Change reasons passed to listeners.
const (
	ReasonReplace    = "replace"
	ReasonText       = "text"
	ReasonInsert     = "insert"
	ReasonFlow       = "flow"
	ReasonDelete     = "delete"
	ReasonAttr       = "attr"
	ReasonSuggestion = "suggestion"
	ReasonContinue   = "continue"
	ReasonReconcile  = "reconcile"
)

// Position addresses a caret location: a block index and a rune offset inside
// that block's text.
type Position struct {
	Block  int
	Offset int
}

// Selection is an anchor/head pair. The head is the caret.
type Selection struct {
	Anchor Position
	Head   Position
}

// Empty reports whether the selection is a plain caret.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

func (s Selection) ordered() (from, to Position) {
	a, h := s.Anchor, s.Head
	if a.Block < h.Block || (a.Block == h.Block && a.Offset <= h.Offset) {
		return a, h
	}
	return h, a
}

// Change describes a content change delivered to listeners after the
// document has been reconciled.
type Change struct {
	Reason   string
	Revision uint64
}

// Listener receives content changes.
type Listener func(Change)

// Document is a live script document: an ordered sequence of blocks, a caret
// and the per-document state the flow rules need. It is not safe for
// concurrent use; callers serialize access.
type Document struct {
	blocks     []Block
	sel        Selection
	policy     FlowPolicy
	characters []string
	listeners  []Listener
	revision   uint64
}

// NewDocument returns a document holding a copy of blocks, or a single empty
// page header when none are given. Derived attributes are taken as given until
// the first reconciliation.
func NewDocument(blocks ...Block) *Document {
	d := &Document{policy: DefaultFlowPolicy()}
	d.blocks = cloneBlocks(blocks)
	if len(d.blocks) == 0 {
		d.blocks = []Block{NewBlock(KindPageHeader)}
	}
	return d
}

func cloneBlocks(in []Block) []Block {
	out := make([]Block, len(in))
	copy(out, in)
	return out
}

// Blocks returns a copy of the current blocks.
func (d *Document) Blocks() []Block { return cloneBlocks(d.blocks) }

// Len is the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Block returns the block at index i.
func (d *Document) Block(i int) Block { return d.blocks[i] }

// Caret returns the head of the selection.
func (d *Document) Caret() Position { return d.sel.Head }

// Selection returns the current selection.
func (d *Document) Selection() Selection { return d.sel }

// Revision increments on every content change.
func (d *Document) Revision() uint64 { return d.revision }

// Policy returns the flow policy in effect.
func (d *Document) Policy() FlowPolicy { return d.policy }

// SetPolicy replaces the flow policy.
func (d *Document) SetPolicy(p FlowPolicy) { d.policy = p }

// OnChange registers a listener for content changes.
func (d *Document) OnChange(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

func (d *Document) notify(reason string) {
	c := Change{Reason: reason, Revision: d.revision}
	for _, l := range d.listeners {
		l(c)
	}
}

// finish closes an edit: it applies auto-continuation, reconciles and
// notifies listeners once when content changed.
func (d *Document) finish(reason string, changed bool) {
	if d.continueAtEnd() {
		changed = true
	}
	if !changed {
		return
	}
	applyLayout(d.blocks, Scan(d.blocks))
	d.revision++
	d.notify(reason)
}

func (d *Document) clamp(p Position) Position {
	if p.Block < 0 {
		p.Block = 0
	}
	if p.Block >= len(d.blocks) {
		p.Block = len(d.blocks) - 1
	}
	n := runeLen(d.blocks[p.Block].Text)
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset > n {
		p.Offset = n
	}
	return p
}

func (d *Document) setCaret(p Position) {
	p = d.clamp(p)
	d.sel = Selection{Anchor: p, Head: p}
}

// ReplaceBlocks swaps the whole content, as on page navigation. The caret
// moves to the start of the first block.
func (d *Document) ReplaceBlocks(blocks []Block) {
	d.blocks = cloneBlocks(blocks)
	if len(d.blocks) == 0 {
		d.blocks = []Block{NewBlock(KindPageHeader)}
	}
	d.setCaret(Position{})
	applyLayout(d.blocks, Scan(d.blocks))
	d.revision++
	d.notify(ReasonReplace)
}

// MoveCaret places the caret, clamped to the document, and clears the selection.
func (d *Document) MoveCaret(p Position) {
	d.setCaret(p)
	d.finish(ReasonContinue, false)
}

// Select sets an anchor/head selection, each end clamped to the document.
func (d *Document) Select(anchor, head Position) {
	d.sel = Selection{Anchor: d.clamp(anchor), Head: d.clamp(head)}
	d.finish(ReasonContinue, false)
}

// deleteSelection removes the selected range, joining the boundary blocks
// like a text editor does, and collapses the caret to its start.
func (d *Document) deleteSelection() bool {
	if d.sel.Empty() {
		return false
	}
	from, to := d.sel.ordered()
	head, _ := splitRunes(d.blocks[from.Block].Text, from.Offset)
	_, tail := splitRunes(d.blocks[to.Block].Text, to.Offset)
	d.blocks[from.Block].Text = head + tail
	if to.Block > from.Block {
		d.blocks = append(d.blocks[:from.Block+1], d.blocks[to.Block+1:]...)
	}
	d.setCaret(from)
	return true
}

// InsertText replaces the selection with s at the caret. Typing the panel
// shortcut into an otherwise empty block expands it into a new panel.
func (d *Document) InsertText(s string) {
	changed := d.deleteSelection()
	if s != "" {
		c := d.sel.Head
		b := &d.blocks[c.Block]
		head, tail := splitRunes(b.Text, c.Offset)
		b.Text = head + s + tail
		d.setCaret(Position{Block: c.Block, Offset: c.Offset + runeLen(s)})
		changed = true
	}
	d.expandPanelShortcut()
	d.finish(ReasonText, changed)
}

// DeleteBackward removes the selection, or the rune before the caret. At the
// start of a block the block is joined onto the previous one.
func (d *Document) DeleteBackward() {
	if d.deleteSelection() {
		d.finish(ReasonDelete, true)
		return
	}
	c := d.sel.Head
	switch {
	case c.Offset > 0:
		head, tail := splitRunes(d.blocks[c.Block].Text, c.Offset)
		r := []rune(head)
		d.blocks[c.Block].Text = string(r[:len(r)-1]) + tail
		d.setCaret(Position{Block: c.Block, Offset: c.Offset - 1})
	case c.Block > 0:
		prev := &d.blocks[c.Block-1]
		off := runeLen(prev.Text)
		prev.Text += d.blocks[c.Block].Text
		d.blocks = append(d.blocks[:c.Block], d.blocks[c.Block+1:]...)
		d.setCaret(Position{Block: c.Block - 1, Offset: off})
	default:
		return
	}
	d.finish(ReasonDelete, true)
}

// SetBlockText replaces the text of block i. The caret is clamped afterwards.
func (d *Document) SetBlockText(i int, text string) bool {
	if i < 0 || i >= len(d.blocks) {
		return false
	}
	if d.blocks[i].Text == text {
		return false
	}
	d.blocks[i].Text = text
	d.sel = Selection{Anchor: d.clamp(d.sel.Anchor), Head: d.clamp(d.sel.Head)}
	d.finish(ReasonText, true)
	return true
}

// SetCueType changes the cue type of a cue-bearing block.
func (d *Document) SetCueType(i int, cueType string) bool {
	if i < 0 || i >= len(d.blocks) || !d.blocks[i].Kind.HasCueType() {
		return false
	}
	cueType = strings.TrimSpace(cueType)
	if d.blocks[i].CueType == cueType {
		return false
	}
	d.blocks[i].CueType = cueType
	d.finish(ReasonAttr, true)
	return true
}

// DeleteBlock removes block i. Removing the last remaining block leaves an
// empty page header behind.
func (d *Document) DeleteBlock(i int) bool {
	if i < 0 || i >= len(d.blocks) {
		return false
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	if len(d.blocks) == 0 {
		d.blocks = []Block{NewBlock(KindPageHeader)}
	}
	c := d.sel.Head
	if c.Block > i {
		c = Position{Block: c.Block - 1, Offset: c.Offset}
	} else if c.Block == i {
		c = Position{Block: i, Offset: 0}
	}
	d.setCaret(c)
	d.finish(ReasonDelete, true)
	return true
}

// Insert replaces the selection (or the caret position) with a new empty
// block of the given kind and puts the caret inside it.
//
// An empty current block other than a page header is replaced. A caret at the
// end of the text inserts after the block, a caret at the start of non-empty
// text inserts before it, and anywhere else the block is split around the new
// one.
func (d *Document) Insert(kind Kind) bool {
	if !kind.Valid() {
		return false
	}
	d.deleteSelection()
	c := d.sel.Head
	cur := d.blocks[c.Block]
	nb := NewBlock(kind)
	at := c.Block
	switch {
	case cur.Text == "" && cur.Kind != KindPageHeader:
		d.blocks[at] = nb
	case c.Offset >= runeLen(cur.Text):
		at++
		d.insertAt(at, nb)
	case c.Offset == 0:
		d.insertAt(at, nb)
	default:
		head, tail := splitRunes(cur.Text, c.Offset)
		d.blocks[at].Text = head
		rest := cur
		rest.Text = tail
		rest.layout = defaultLayout
		at++
		d.insertAt(at, nb, rest)
	}
	d.setCaret(Position{Block: at})
	d.finish(ReasonInsert, true)
	return true
}

func (d *Document) insertAt(i int, bs ...Block) {
	d.blocks = append(d.blocks[:i], append(bs, d.blocks[i:]...)...)
}

func runeLen(s string) int { return len([]rune(s)) }

func splitRunes(s string, off int) (string, string) {
	r := []rune(s)
	if off < 0 {
		off = 0
	}
	if off > len(r) {
		off = len(r)
	}
	return string(r[:off]), string(r[off:])
}
