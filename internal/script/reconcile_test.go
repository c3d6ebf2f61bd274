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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcileNumbersPages(t *testing.T) {
	d := NewDocument(pageHdr(7, 0), pageHdr(7, 0), pageHdr(7, 0))
	if !Reconcile(d) {
		t.Fatalf("expected stale pages to be corrected")
	}
	require.Equal(t, []Block{pageHdr(1, 0), pageHdr(2, 0), pageHdr(3, 0)}, d.Blocks())
}

func TestReconcileNumbersPanelsPerPage(t *testing.T) {
	d := NewDocument(blk(KindPageHeader), blk(KindPanelHeader), blk(KindPanelHeader), blk(KindPageHeader), blk(KindPanelHeader))
	Reconcile(d)
	want := []Block{pageHdr(1, 2), panelHdr(1, ""), panelHdr(2, ""), pageHdr(2, 1), panelHdr(1, "")}
	require.Equal(t, want, d.Blocks())
}

func TestReconcileIsIdempotent(t *testing.T) {
	d := NewDocument(pageHdr(3, 5), panelHdr(9, "a"), blk(KindDescription), panelHdr(9, "b"), pageHdr(1, 0))
	var changes []Change
	d.OnChange(func(c Change) { changes = append(changes, c) })

	if !Reconcile(d) {
		t.Fatalf("first Reconcile should report a change")
	}
	once := d.Blocks()
	if Reconcile(d) {
		t.Fatalf("second Reconcile should be a no-op")
	}
	require.Equal(t, once, d.Blocks())
	if len(changes) != 1 || changes[0].Reason != ReasonReconcile {
		t.Fatalf("expected exactly one reconcile notification, got %+v", changes)
	}
}

func TestReconcileLeavesOrphanPanelsAlone(t *testing.T) {
	d := NewDocument(panelHdr(5, "orphan"), blk(KindPageHeader), blk(KindPanelHeader))
	Reconcile(d)
	if got := d.Block(0).PanelNumber(); got != 5 {
		t.Fatalf("orphan panel renumbered to %d", got)
	}
	if got := d.Block(2).PanelNumber(); got != 1 {
		t.Fatalf("panel number = %d, want 1", got)
	}
	if got := d.Block(1).PanelCount(); got != 1 {
		t.Fatalf("panel count = %d, want 1", got)
	}
}

func TestEditsAreReconciledBeforeListenersRun(t *testing.T) {
	d := manual(blk(KindPageHeader), blk(KindPanelHeader))
	var seen []int
	d.OnChange(func(Change) { seen = append(seen, d.Block(0).PanelCount()) })

	d.MoveCaret(Position{Block: 0})
	if !d.Insert(KindPanelHeader) {
		t.Fatalf("Insert returned false")
	}
	require.Equal(t, []int{2}, seen)
	if d.Block(1).PanelNumber() != 1 || d.Block(2).PanelNumber() != 2 {
		t.Fatalf("panels not renumbered: %+v", d.Blocks())
	}
}

var allKinds = []Kind{
	KindPageHeader, KindPanelHeader, KindDescription, KindCharacter, KindDialogue,
	KindSfx, KindNoCopy, KindCueLabel, KindCueContent, KindNotes,
}

// randomBlocks builds a block sequence with stale numbering. Structural kinds
// are drawn more often so pages with several panels are common.
func randomBlocks(r *rand.Rand, n int) []Block {
	blocks := make([]Block, n)
	for i := range blocks {
		var k Kind
		switch r.IntN(4) {
		case 0:
			k = KindPageHeader
		case 1:
			k = KindPanelHeader
		default:
			k = allKinds[r.IntN(len(allKinds))]
		}
		b := NewBlock(k)
		b.layout = Layout{Page: r.IntN(9), PanelCount: r.IntN(9), PanelNumber: r.IntN(9)}
		blocks[i] = b
	}
	return blocks
}

func checkNumbering(t *testing.T, blocks []Block) {
	t.Helper()
	page, panel := 0, 0
	header := -1
	count := func() {
		if header >= 0 {
			require.Equal(t, panel, blocks[header].PanelCount(), "panel_count of page at block %d", header)
		}
	}
	for i, b := range blocks {
		switch b.Kind {
		case KindPageHeader:
			count()
			page++
			panel = 0
			header = i
			require.Equal(t, page, b.Page(), "page number at block %d", i)
		case KindPanelHeader:
			if header < 0 {
				continue
			}
			panel++
			require.Equal(t, panel, b.PanelNumber(), "panel number at block %d", i)
		}
	}
	count()
}

func TestReconcileHoldsNumberingForRandomDocuments(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 42))
	for run := 0; run < 300; run++ {
		blocks := randomBlocks(r, r.IntN(40))
		t.Run(fmt.Sprintf("doc%03d", run), func(t *testing.T) {
			d := manual(blocks...)
			Reconcile(d)
			checkNumbering(t, d.Blocks())

			rev := d.Revision()
			require.False(t, Reconcile(d), "second pass changed the document")
			require.Equal(t, rev, d.Revision())
		})
	}
}
