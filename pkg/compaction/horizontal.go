package compaction

import (
	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

// HorizontalPass tiles every row into the fewest equal monochrome chunks.
type HorizontalPass struct{}

func (HorizontalPass) Name() string { return telemetry.PassHorizontal }

func (HorizontalPass) Apply(g *block.Grid) {
	for f := 0; f < g.Frames(); f++ {
		for r := 0; r < g.Rows(); r++ {
			CompressRow(g.Row(f, r))
		}
	}
}

// ChunkCount returns the smallest k dividing len(row) for which every one of
// the k equal chunks is a single color. An empty row yields 0.
func ChunkCount(row []block.Block) int {
	n := len(row)
	for k := 1; k <= n; k++ {
		if n%k != 0 {
			continue
		}
		if monochrome(row, n/k) {
			return k
		}
	}
	return n
}

func monochrome(row []block.Block, size int) bool {
	for start := 0; start < len(row); start += size {
		color := row[start].Color
		for _, b := range row[start+1 : start+size] {
			if b.Color != color {
				return false
			}
		}
	}
	return true
}

// CompressRow rewrites row in place: chunk i of the accepted tiling becomes
// copies of its first block with Order i. It returns the chunk count.
func CompressRow(row []block.Block) int {
	k := ChunkCount(row)
	if k == 0 {
		return 0
	}

	size := len(row) / k
	for i := 0; i < k; i++ {
		head := row[i*size]
		head.Order = i
		for j := i * size; j < (i+1)*size; j++ {
			row[j] = head
		}
	}
	return k
}
