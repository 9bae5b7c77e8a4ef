package block

// ColumnRange is the half-open column interval [Start, End) of one partition.
type ColumnRange struct {
	Start int
	End   int
}

// Width returns the number of columns in the range.
func (r ColumnRange) Width() int {
	return r.End - r.Start
}

// SplitColumns divides width columns into n equal slabs.
func SplitColumns(width, n int) ([]ColumnRange, error) {
	if n <= 0 {
		return nil, ConfigurationError.New("partition count must be positive, got %d", n)
	}
	if width <= 0 {
		return nil, ConfigurationError.New("grid width must be positive, got %d", width)
	}
	if width%n != 0 {
		return nil, ConfigurationError.New("grid width %d is not divisible by %d partitions", width, n)
	}

	slab := width / n
	ranges := make([]ColumnRange, n)
	for i := range ranges {
		ranges[i] = ColumnRange{Start: i * slab, End: (i + 1) * slab}
	}
	return ranges, nil
}

// ValidateFrames checks that every frame has the same row and column counts
// and returns them.
func ValidateFrames(frames [][][]bool) (rows, cols int, err error) {
	if len(frames) == 0 {
		return 0, 0, DimensionMismatch.New("no frames")
	}

	rows = len(frames[0])
	if rows == 0 {
		return 0, 0, DimensionMismatch.New("frame 0 has no rows")
	}
	cols = len(frames[0][0])

	for f, frame := range frames {
		if len(frame) != rows {
			return 0, 0, DimensionMismatch.New("frame %d has %d rows, expected %d", f, len(frame), rows)
		}
		for r, row := range frame {
			if len(row) != cols {
				return 0, 0, DimensionMismatch.New("frame %d row %d has %d columns, expected %d", f, r, len(row), cols)
			}
		}
	}
	return rows, cols, nil
}

// Partition is one column slab of the input and the grid that compresses it.
type Partition struct {
	Index int
	Grid  *Grid
}

// BuildPartition materializes the unit-cell grid of one column slab.
func BuildPartition(frames [][][]bool, index int, cols ColumnRange) (*Partition, error) {
	rows, width, err := ValidateFrames(frames)
	if err != nil {
		return nil, err
	}
	if cols.Start < 0 || cols.End > width || cols.Width() <= 0 {
		return nil, ConfigurationError.New("column range [%d,%d) outside grid width %d", cols.Start, cols.End, width)
	}

	g := NewGrid(len(frames), rows, cols.Width())
	for f, frame := range frames {
		for r, row := range frame {
			cells := g.Row(f, r)
			for c := range cells {
				cells[c] = Unit(f, r, c, row[cols.Start+c])
			}
		}
	}
	return &Partition{Index: index, Grid: g}, nil
}

// Split validates frames and builds one partition per column slab.
func Split(frames [][][]bool, n int) ([]*Partition, error) {
	_, width, err := ValidateFrames(frames)
	if err != nil {
		return nil, err
	}
	ranges, err := SplitColumns(width, n)
	if err != nil {
		return nil, err
	}

	parts := make([]*Partition, len(ranges))
	for i, cr := range ranges {
		p, err := BuildPartition(frames, i, cr)
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return parts, nil
}

// Sequence is the compressed form of a sampled video: every partition plus
// the playback rate of the samples.
type Sequence struct {
	Partitions []*Partition
	FPS        int
	FrameCount int
}

// Pixels returns the number of input pixels the sequence represents.
func (s *Sequence) Pixels() int {
	n := 0
	for _, p := range s.Partitions {
		n += p.Grid.Len()
	}
	return n
}

// BlockCount returns the number of distinct blocks over all partitions.
func (s *Sequence) BlockCount() int {
	n := 0
	for _, p := range s.Partitions {
		n += len(p.Grid.Distinct())
	}
	return n
}

// Ratio returns pixels per block, or 0 for an empty sequence.
func (s *Sequence) Ratio() float64 {
	blocks := s.BlockCount()
	if blocks == 0 {
		return 0
	}
	return float64(s.Pixels()) / float64(blocks)
}

// Frames reassembles the full-width on/off frames from the partition grids.
func (s *Sequence) Frames() [][][]bool {
	if len(s.Partitions) == 0 {
		return nil
	}
	first := s.Partitions[0].Grid
	width := 0
	for _, p := range s.Partitions {
		width += p.Grid.Cols()
	}

	out := make([][][]bool, first.Frames())
	for f := range out {
		out[f] = make([][]bool, first.Rows())
		for r := range out[f] {
			out[f][r] = make([]bool, 0, width)
		}
	}
	for _, p := range s.Partitions {
		colors := p.Grid.Colors()
		for f := range out {
			for r := range out[f] {
				out[f][r] = append(out[f][r], colors[f][r]...)
			}
		}
	}
	return out
}
