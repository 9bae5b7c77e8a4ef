package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func frames(rows ...string) [][]bool {
	out := make([][]bool, len(rows))
	for r, row := range rows {
		out[r] = make([]bool, len(row))
		for c, ch := range row {
			out[r][c] = ch == '#'
		}
	}
	return out
}

func TestSplitColumns(t *testing.T) {
	ranges, err := SplitColumns(10, 5)
	require.NoError(t, err)
	require.Len(t, ranges, 5)
	for i, r := range ranges {
		require.Equal(t, ColumnRange{Start: i * 2, End: i*2 + 2}, r)
		require.Equal(t, 2, r.Width())
	}
}

func TestSplitColumns_NotDivisible(t *testing.T) {
	for _, tc := range []struct {
		name  string
		width int
		n     int
	}{
		{name: "remainder", width: 12, n: 5},
		{name: "zero partitions", width: 10, n: 0},
		{name: "zero width", width: 0, n: 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SplitColumns(tc.width, tc.n)
			require.Error(t, err)
			require.True(t, ConfigurationError.Has(err))
		})
	}
}

func TestValidateFrames(t *testing.T) {
	rows, cols, err := ValidateFrames([][][]bool{
		frames("#.", ".."),
		frames("..", "##"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)

	_, _, err = ValidateFrames(nil)
	require.True(t, DimensionMismatch.Has(err))

	_, _, err = ValidateFrames([][][]bool{frames("#.", ".."), frames("#.")})
	require.True(t, DimensionMismatch.Has(err))

	_, _, err = ValidateFrames([][][]bool{frames("#.", ".."), frames("#.", "...")})
	require.True(t, DimensionMismatch.Has(err))
}

func TestBuildPartition(t *testing.T) {
	in := [][][]bool{
		frames("##..", ".#.#"),
		frames("....", "####"),
	}

	p, err := BuildPartition(in, 1, ColumnRange{Start: 2, End: 4})
	require.NoError(t, err)
	require.Equal(t, 1, p.Index)

	g := p.Grid
	require.Equal(t, 2, g.Frames())
	require.Equal(t, 2, g.Rows())
	require.Equal(t, 2, g.Cols())

	require.Equal(t, Block{StartTime: 0, EndTime: 0, Order: 0, StartHeight: 1, EndHeight: 1, Color: false}, g.At(0, 1, 0))
	require.Equal(t, Block{StartTime: 0, EndTime: 0, Order: 1, StartHeight: 1, EndHeight: 1, Color: true}, g.At(0, 1, 1))
	require.Equal(t, Block{StartTime: 1, EndTime: 1, Order: 1, StartHeight: 1, EndHeight: 1, Color: true}, g.At(1, 1, 1))
	require.Equal(t, 8, len(g.Distinct()))
}

func TestBuildPartition_BadRange(t *testing.T) {
	_, err := BuildPartition([][][]bool{frames("##")}, 0, ColumnRange{Start: 1, End: 3})
	require.True(t, ConfigurationError.Has(err))
}

func TestGrid_RowSharesStorage(t *testing.T) {
	g := NewGrid(1, 2, 3)
	row := g.Row(0, 1)
	row[2] = Unit(0, 1, 2, true)

	require.True(t, g.At(0, 1, 2).Color)
	require.False(t, g.At(0, 0, 2).Color)

	// Writing a copy into another cell must not link the two cells.
	g.Set(0, 0, 0, row[2])
	row[2].EndTime = 7
	require.Equal(t, 0, g.At(0, 0, 0).EndTime)
	require.Equal(t, 7, g.At(0, 1, 2).EndTime)
}

func TestGrid_DistinctFirstSeen(t *testing.T) {
	g := NewGrid(1, 1, 4)
	a := Block{Color: true}
	b := Block{Order: 1}
	g.Set(0, 0, 0, b)
	g.Set(0, 0, 1, a)
	g.Set(0, 0, 2, b)
	g.Set(0, 0, 3, a)

	require.Equal(t, []Block{b, a}, g.Distinct())
}

func TestSplitAndFrames(t *testing.T) {
	in := [][][]bool{
		frames("#.##..", "......"),
		frames("######", "#.#.#."),
	}
	parts, err := Split(in, 3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	seq := &Sequence{Partitions: parts, FPS: 30, FrameCount: 2}
	require.Equal(t, in, seq.Frames())
	require.Equal(t, 24, seq.Pixels())
	require.Equal(t, 24, seq.BlockCount())
	require.InDelta(t, 1.0, seq.Ratio(), 1e-9)

	_, err = Split(in, 4)
	require.True(t, ConfigurationError.Has(err))
}

func TestBlockSpans(t *testing.T) {
	b := Block{StartTime: 2, EndTime: 4, StartHeight: 1, EndHeight: 1}
	require.Equal(t, 3, b.Frames())
	require.Equal(t, 1, b.Rows())
	require.Equal(t, "block{t=2..4 h=1..1 order=0 color=0}", b.String())
}

func TestGrid_Colors(t *testing.T) {
	in := [][][]bool{
		{{true, false, false}, {false, false, true}},
		{{true, true, true}, {false, true, false}},
	}
	p, err := BuildPartition(in, 0, ColumnRange{Start: 0, End: 3})
	require.NoError(t, err)
	require.Equal(t, in, p.Grid.Colors())
}
