/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Key is a navigation key the flow rules react to.
type Key int

const (
	KeyEnter Key = iota
	KeyTab
	KeyShiftTab
)

func (k Key) String() string {
	switch k {
	case KeyEnter:
		return "enter"
	case KeyTab:
		return "tab"
	case KeyShiftTab:
		return "shift-tab"
	}
	return "unknown"
}

// PanelShortcut typed alone into a block expands into a new panel.
const PanelShortcut = "Panel--"

// FlowPolicy selects between the navigation variants an editor may want.
type FlowPolicy struct {
	// TabInsertsAtDeadEnd makes Tab behave like Enter when there is no
	// navigable next block.
	TabInsertsAtDeadEnd bool
	// ShiftTabEntersPanelHeader lets Shift-Tab move back into a panel header.
	ShiftTabEntersPanelHeader bool
	// AutoContinue appends an empty page header once the caret reaches the
	// end of the document.
	AutoContinue bool
}

// DefaultFlowPolicy is the policy new documents start with.
func DefaultFlowPolicy() FlowPolicy {
	return FlowPolicy{TabInsertsAtDeadEnd: true, AutoContinue: true}
}

var transitions = map[Kind]Kind{
	KindPageHeader:  KindPanelHeader,
	KindPanelHeader: KindDescription,
	KindDescription: KindCharacter,
	KindCharacter:   KindDialogue,
	KindDialogue:    KindCharacter,
	KindSfx:         KindDialogue,
	KindNoCopy:      KindDialogue,
}

// Transition returns the kind that follows from in the writing flow.
func Transition(from Kind) (Kind, bool) {
	k, ok := transitions[from]
	return k, ok
}

// HandleKey applies the flow rules for k. It returns false when the key was
// not consumed and the host should apply its default behavior.
func (d *Document) HandleKey(k Key) bool {
	switch k {
	case KeyEnter:
		return d.flowInsert()
	case KeyTab:
		i := d.sel.Head.Block
		if i+1 < len(d.blocks) && !d.blocks[i+1].Kind.IsBoundary() {
			d.MoveCaret(Position{Block: i + 1})
			return true
		}
		if d.policy.TabInsertsAtDeadEnd {
			return d.flowInsert()
		}
	case KeyShiftTab:
		i := d.sel.Head.Block
		if i > 0 && !d.stopsShiftTab(d.blocks[i-1].Kind) {
			d.MoveCaret(Position{Block: i - 1})
			return true
		}
	}
	return false
}

func (d *Document) stopsShiftTab(k Kind) bool {
	if k == KindPanelHeader && d.policy.ShiftTabEntersPanelHeader {
		return false
	}
	return k.IsBoundary()
}

// flowInsert inserts the transition target right after the current block.
func (d *Document) flowInsert() bool {
	i := d.sel.Head.Block
	next, ok := Transition(d.blocks[i].Kind)
	if !ok {
		return false
	}
	d.insertAt(i+1, NewBlock(next))
	d.setCaret(Position{Block: i + 1})
	d.finish(ReasonFlow, true)
	return true
}

// expandPanelShortcut turns a block holding exactly the panel shortcut, with
// the caret at its end, into a panel header followed by an empty description.
func (d *Document) expandPanelShortcut() bool {
	c := d.sel.Head
	cur := d.blocks[c.Block]
	if cur.Text != PanelShortcut || c.Offset != runeLen(PanelShortcut) {
		return false
	}
	count := 0
	for i, b := range d.blocks {
		if b.Kind == KindPanelHeader && i != c.Block {
			count++
		}
	}
	ph := NewBlock(KindPanelHeader)
	ph.layout.PanelNumber = count + 1
	desc := NewBlock(KindDescription)

	at := c.Block
	if cur.Kind == KindPageHeader {
		d.blocks[at].Text = ""
		at++
		d.insertAt(at, ph, desc)
	} else {
		d.blocks[at] = ph
		d.insertAt(at+1, desc)
	}
	d.setCaret(Position{Block: at + 1})
	return true
}

// continueAtEnd appends an empty page header when auto-continuation is on,
// the caret sits at the very end and the last block is not a page header.
func (d *Document) continueAtEnd() bool {
	if !d.policy.AutoContinue {
		return false
	}
	last := len(d.blocks) - 1
	c := d.sel.Head
	if c.Block != last || c.Offset != runeLen(d.blocks[last].Text) {
		return false
	}
	if d.blocks[last].Kind == KindPageHeader {
		return false
	}
	d.blocks = append(d.blocks, NewBlock(KindPageHeader))
	return true
}
