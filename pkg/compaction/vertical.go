package compaction

import (
	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

// VerticalPass extends blocks downwards within each frame.
type VerticalPass struct{}

func (VerticalPass) Name() string { return telemetry.PassVertical }

func (VerticalPass) Apply(g *block.Grid) {
	for f := 0; f < g.Frames(); f++ {
		CompressFrame(g, f)
	}
}

// CompressFrame merges rows of one frame whose blocks keep the same order and
// color as the row above. Rows with a different number of distinct orders
// than the previous row never merge. Within a row, the first column that does
// not match stops extension for every column to its right.
func CompressFrame(g *block.Grid, frame int) {
	if g.Rows() == 0 || g.Cols() == 0 {
		return
	}

	seen := make(map[int]struct{}, g.Cols())
	prev := append([]block.Block(nil), g.Row(frame, 0)...)

	for r := 1; r < g.Rows(); r++ {
		cur := g.Row(frame, r)

		if distinctOrders(prev, seen) != distinctOrders(cur, seen) {
			copy(prev, cur)
			continue
		}

		canExtend := true
		for c := range cur {
			if canExtend && cur[c].Color == prev[c].Color && cur[c].Order == prev[c].Order {
				prev[c].EndHeight = r
				cur[c] = prev[c]
			} else {
				prev[c] = cur[c]
				canExtend = false
			}
		}
	}

	settleHeights(g, frame)
}

func distinctOrders(row []block.Block, seen map[int]struct{}) int {
	clear(seen)
	for _, b := range row {
		seen[b.Order] = struct{}{}
	}
	return len(seen)
}

// heightKey identifies a vertical region within one frame. Regions start as
// horizontal chunks, and a row holds one chunk per order.
type heightKey struct {
	startHeight int
	order       int
}

// settleHeights gives every cell of a region the lowest row the region
// reached.
func settleHeights(g *block.Grid, frame int) {
	end := make(map[heightKey]int)
	for r := 0; r < g.Rows(); r++ {
		for _, b := range g.Row(frame, r) {
			k := heightKey{b.StartHeight, b.Order}
			if b.EndHeight > end[k] {
				end[k] = b.EndHeight
			}
		}
	}

	for r := 0; r < g.Rows(); r++ {
		row := g.Row(frame, r)
		for c := range row {
			row[c].EndHeight = end[heightKey{row[c].StartHeight, row[c].Order}]
		}
	}
}
