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

func pageHdr(n, count int) Block {
	b := NewBlock(KindPageHeader)
	b.layout.Page = n
	b.layout.PanelCount = count
	return b
}

func panelHdr(n int, text string) Block {
	b := TextBlock(KindPanelHeader, text)
	b.layout.PanelNumber = n
	return b
}

func blk(k Kind) Block { return NewBlock(k) }

// manual returns a document that never auto-continues.
func manual(blocks ...Block) *Document {
	d := NewDocument(blocks...)
	p := d.Policy()
	p.AutoContinue = false
	d.SetPolicy(p)
	return d
}

func TestScanGroupsPanelsByPage(t *testing.T) {
	blocks := []Block{blk(KindPageHeader), blk(KindPanelHeader), blk(KindDescription), blk(KindPanelHeader), blk(KindPageHeader), blk(KindPanelHeader)}
	got := Scan(blocks)
	want := []PageInfo{
		{PagePosition: 0, PageNumber: 1, PanelCount: 2, PanelPositions: []int{1, 3}},
		{PagePosition: 4, PageNumber: 2, PanelCount: 1, PanelPositions: []int{5}},
	}
	require.Equal(t, want, got)
}

func TestScanDropsPanelsBeforeFirstPage(t *testing.T) {
	blocks := []Block{blk(KindPanelHeader), blk(KindPageHeader), blk(KindPanelHeader)}
	got := Scan(blocks)
	want := []PageInfo{{PagePosition: 1, PageNumber: 1, PanelCount: 1, PanelPositions: []int{2}}}
	require.Equal(t, want, got)
}

func TestScanWithoutPageHeaders(t *testing.T) {
	got := Scan([]Block{blk(KindPanelHeader), blk(KindDescription)})
	if len(got) != 0 {
		t.Fatalf("expected no pages, got %+v", got)
	}
	if got := Scan(nil); len(got) != 0 {
		t.Fatalf("expected no pages for nil input, got %+v", got)
	}
}

func TestScanDoesNotModifyInput(t *testing.T) {
	blocks := []Block{pageHdr(9, 9), panelHdr(4, "x")}
	before := append([]Block(nil), blocks...)
	_ = Scan(blocks)
	require.Equal(t, before, blocks)
}

func TestSplitPages(t *testing.T) {
	blocks := []Block{
		panelHdr(1, "orphan"),
		pageHdr(1, 1), panelHdr(1, "a"), blk(KindDescription),
		pageHdr(2, 0),
	}
	chunks := SplitPages(blocks)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], 3)
	require.Equal(t, KindPageHeader, chunks[0][0].Kind)
	require.Len(t, chunks[1], 1)

	chunks[0][1].Text = "changed"
	require.Equal(t, "a", blocks[2].Text)
}
