package compaction

import (
	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

// TemporalPass extends blocks forward in time. A block in frame f matches
// any cell of the same row in frame f+1 with equal row span, color and
// order, regardless of column. When several source cells match the same
// target, the last one in column order wins.
type TemporalPass struct{}

func (TemporalPass) Name() string { return telemetry.PassTemporal }

func (TemporalPass) Apply(g *block.Grid) {
	for f1 := 0; f1 < g.Frames()-1; f1++ {
		f2 := f1 + 1
		for r := 0; r < g.Rows(); r++ {
			src := g.Row(f1, r)
			dst := g.Row(f2, r)

			for c1 := range src {
				for c2 := range dst {
					b1 := src[c1]
					if !mergeable(b1, dst[c2]) {
						continue
					}
					b1.EndTime = dst[c2].EndTime
					src[c1] = b1
					dst[c2] = b1
				}
			}
		}
	}

	settleTimes(g)
}

func mergeable(a, b block.Block) bool {
	return a.StartHeight == b.StartHeight &&
		a.EndHeight == b.EndHeight &&
		a.Color == b.Color &&
		a.Order == b.Order
}

// timeKey identifies a region across frames. Regions are born in their start
// frame, where (StartHeight, Order) is already unique.
type timeKey struct {
	startTime   int
	startHeight int
	order       int
}

// settleTimes gives every cell of a region the last frame the region reached.
func settleTimes(g *block.Grid) {
	end := make(map[timeKey]int)
	g.Each(func(_, _, _ int, b block.Block) {
		k := timeKey{b.StartTime, b.StartHeight, b.Order}
		if b.EndTime > end[k] {
			end[k] = b.EndTime
		}
	})

	for f := 0; f < g.Frames(); f++ {
		for r := 0; r < g.Rows(); r++ {
			row := g.Row(f, r)
			for c := range row {
				row[c].EndTime = end[timeKey{row[c].StartTime, row[c].StartHeight, row[c].Order}]
			}
		}
	}
}
