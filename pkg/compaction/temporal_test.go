package compaction

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevoDB/blockvid/pkg/block"
)

func TestTemporalCrossColumnMerge(t *testing.T) {
	g := block.NewGrid(2, 1, 4)
	g.Set(0, 0, 0, block.Block{StartTime: 0, EndTime: 0, Order: 0, Color: T})
	for c := 1; c < 4; c++ {
		g.Set(0, 0, c, block.Block{StartTime: 0, EndTime: 0, Order: c, Color: F})
	}
	for c := 0; c < 3; c++ {
		g.Set(1, 0, c, block.Block{StartTime: 1, EndTime: 1, Order: c + 1, Color: T})
	}
	g.Set(1, 0, 3, block.Block{StartTime: 1, EndTime: 1, Order: 0, Color: T})

	TemporalPass{}.Apply(g)

	merged := block.Block{StartTime: 0, EndTime: 1, Order: 0, Color: T}
	require.Equal(t, merged, g.At(1, 0, 3))
	require.Equal(t, merged, g.At(0, 0, 0))

	// same order but a different color never merges
	require.Equal(t, block.Block{StartTime: 1, EndTime: 1, Order: 1, Color: T}, g.At(1, 0, 0))
	require.Equal(t, 0, g.At(0, 0, 1).EndTime)
}

func TestTemporalRequiresEqualRowSpan(t *testing.T) {
	g := block.NewGrid(2, 2, 1)
	g.Set(0, 0, 0, block.Block{StartTime: 0, EndTime: 0, StartHeight: 0, EndHeight: 1, Color: T})
	g.Set(0, 1, 0, block.Block{StartTime: 0, EndTime: 0, StartHeight: 0, EndHeight: 1, Color: T})
	g.Set(1, 0, 0, block.Block{StartTime: 1, EndTime: 1, StartHeight: 0, EndHeight: 0, Color: T})
	g.Set(1, 1, 0, block.Block{StartTime: 1, EndTime: 1, StartHeight: 1, EndHeight: 1, Color: T})

	before := make([]block.Block, 0, g.Len())
	g.Each(func(f, r, c int, b block.Block) { before = append(before, b) })

	TemporalPass{}.Apply(g)

	after := make([]block.Block, 0, g.Len())
	g.Each(func(f, r, c int, b block.Block) { after = append(after, b) })
	require.Equal(t, before, after)
}

func TestTemporalChainsAcrossFrames(t *testing.T) {
	g := gridOf(t, uniform(3, 2, 2, F))
	compressSpatially(g)

	TemporalPass{}.Apply(g)

	want := block.Block{StartTime: 0, EndTime: 2, StartHeight: 0, EndHeight: 1, Color: F}
	g.Each(func(f, r, c int, b block.Block) {
		require.Equal(t, want, b, "cell %d/%d/%d", f, r, c)
	})
}

func TestTemporalStopsWhenPatternChanges(t *testing.T) {
	g := gridOf(t, [][][]bool{
		{{T, T, F, F}},
		{{T, T, F, F}},
		{{F, F, F, F}},
	})
	compressSpatially(g)

	TemporalPass{}.Apply(g)

	require.Equal(t, block.Block{StartTime: 0, EndTime: 1, Order: 0, Color: T}, g.At(1, 0, 1))
	require.Equal(t, block.Block{StartTime: 0, EndTime: 1, Order: 1, Color: F}, g.At(0, 0, 2))
	require.Equal(t, block.Block{StartTime: 2, EndTime: 2, Order: 0, Color: F}, g.At(2, 0, 0))
	require.Len(t, g.Distinct(), 3)
}

func TestTemporalShiftedPatternMerges(t *testing.T) {
	// a single on cell wanders right; order follows the column so it only
	// merges when the order matches
	g := gridOf(t, [][][]bool{
		{{T, F, F, F}},
		{{F, T, F, F}},
	})
	compressSpatially(g)

	TemporalPass{}.Apply(g)

	// frame 0 off cells (orders 1..3) carry into frame 1 wherever order and color agree
	require.Equal(t, block.Block{StartTime: 0, EndTime: 1, Order: 2, Color: F}, g.At(1, 0, 2))
	require.Equal(t, block.Block{StartTime: 1, EndTime: 1, Order: 1, Color: T}, g.At(1, 0, 1))
	require.Equal(t, block.Block{StartTime: 0, EndTime: 0, Order: 0, Color: T}, g.At(0, 0, 0))
}

// sharedGrid runs the passes with one heap block per logical region, so an
// extension is visible through every cell that points at the block.
type sharedGrid struct {
	frames, rows, cols int
	cells              []*block.Block
}

func newSharedGrid(frames [][][]bool) *sharedGrid {
	g := &sharedGrid{frames: len(frames), rows: len(frames[0]), cols: len(frames[0][0])}
	for f, frame := range frames {
		for r, row := range frame {
			for c, color := range row {
				b := block.Unit(f, r, c, color)
				g.cells = append(g.cells, &b)
			}
		}
	}
	return g
}

func (g *sharedGrid) row(f, r int) []*block.Block {
	start := (f*g.rows + r) * g.cols
	return g.cells[start : start+g.cols]
}

func (g *sharedGrid) horizontal() {
	for f := 0; f < g.frames; f++ {
		for r := 0; r < g.rows; r++ {
			row := g.row(f, r)
			n := len(row)
			for k := 1; k <= n; k++ {
				if n%k != 0 {
					continue
				}
				size := n / k
				ok := true
				for i := 0; i < k && ok; i++ {
					for j := i*size + 1; j < (i+1)*size; j++ {
						if row[j].Color != row[i*size].Color {
							ok = false
							break
						}
					}
				}
				if !ok {
					continue
				}
				for i := 0; i < k; i++ {
					head := row[i*size]
					head.Order = i
					for j := i*size + 1; j < (i+1)*size; j++ {
						row[j] = head
					}
				}
				break
			}
		}
	}
}

func sharedOrders(row []*block.Block) int {
	seen := make(map[int]bool)
	for _, b := range row {
		seen[b.Order] = true
	}
	return len(seen)
}

func (g *sharedGrid) vertical() {
	for f := 0; f < g.frames; f++ {
		prev := append([]*block.Block(nil), g.row(f, 0)...)
		for r := 1; r < g.rows; r++ {
			cur := g.row(f, r)
			if sharedOrders(cur) != sharedOrders(prev) {
				copy(prev, cur)
				continue
			}
			canExtend := true
			for c := range cur {
				if canExtend && prev[c].Color == cur[c].Color && prev[c].Order == cur[c].Order {
					prev[c].EndHeight = r
					cur[c] = prev[c]
				} else {
					prev[c] = cur[c]
					canExtend = false
				}
			}
		}
	}
}

func (g *sharedGrid) temporal() {
	for f1 := 0; f1 < g.frames-1; f1++ {
		for r := 0; r < g.rows; r++ {
			src, dst := g.row(f1, r), g.row(f1+1, r)
			for c1 := range src {
				for c2 := range dst {
					if mergeable(*src[c1], *dst[c2]) {
						src[c1].EndTime = dst[c2].EndTime
						dst[c2] = src[c1]
					}
				}
			}
		}
	}
}

func TestPassesMatchSharedBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	widths := []int{1, 2, 3, 4, 6, 8, 12}

	for i := 0; i < 2000; i++ {
		frames := make([][][]bool, 1+rng.Intn(4))
		rows := 1 + rng.Intn(6)
		cols := widths[rng.Intn(len(widths))]
		density := rng.Float64()
		for f := range frames {
			frames[f] = make([][]bool, rows)
			for r := range frames[f] {
				frames[f][r] = make([]bool, cols)
				for c := range frames[f][r] {
					frames[f][r][c] = rng.Float64() < density
				}
			}
		}

		shared := newSharedGrid(frames)
		shared.horizontal()
		shared.vertical()
		shared.temporal()

		g := gridOf(t, frames)
		HorizontalPass{}.Apply(g)
		VerticalPass{}.Apply(g)
		TemporalPass{}.Apply(g)

		g.Each(func(f, r, c int, b block.Block) {
			want := *shared.row(f, r)[c]
			if want != b {
				t.Fatalf("case %d %v: cell %d/%d/%d = %s, shared blocks give %s", i, frames, f, r, c, b, want)
			}
		})
	}
}
