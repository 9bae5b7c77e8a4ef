package compaction

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
)

const (
	T = true
	F = false
)

// unitRow builds the unit blocks of row 0 in frame 0.
func unitRow(colors ...bool) []block.Block {
	row := make([]block.Block, len(colors))
	for c, color := range colors {
		row[c] = block.Unit(0, 0, c, color)
	}
	return row
}

func orders(row []block.Block) []int {
	out := make([]int, len(row))
	for i, b := range row {
		out[i] = b.Order
	}
	return out
}

// gridOf builds the unit grid of a single partition covering all columns.
func gridOf(t *testing.T, frames [][][]bool) *block.Grid {
	t.Helper()
	p, err := block.BuildPartition(frames, 0, block.ColumnRange{Start: 0, End: len(frames[0][0])})
	require.NoError(t, err)
	return p.Grid
}

func randomFrames(seed int64, frames, rows, cols int) [][][]bool {
	rng := rand.New(rand.NewSource(seed))
	out := make([][][]bool, frames)
	for f := range out {
		out[f] = make([][]bool, rows)
		for r := range out[f] {
			out[f][r] = make([]bool, cols)
			for c := range out[f][r] {
				out[f][r][c] = rng.Intn(3) == 0
			}
		}
	}
	return out
}

func uniform(frames, rows, cols int, color bool) [][][]bool {
	out := make([][][]bool, frames)
	for f := range out {
		out[f] = make([][]bool, rows)
		for r := range out[f] {
			out[f][r] = make([]bool, cols)
			for c := range out[f][r] {
				out[f][r][c] = color
			}
		}
	}
	return out
}

func quietLogger() log.Logger {
	return log.NewStandardLogger(log.WithOutput(io.Discard))
}

func testConfig(partitions, workers int) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Partitions = partitions
	cfg.Workers = workers
	return cfg
}
