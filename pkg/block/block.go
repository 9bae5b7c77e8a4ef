// Package block defines the block grid that the compaction passes operate on.
//
// A Block is a plain value. Cells of a Grid hold their own copies, so a
// merged region is the set of cells that carry identical field values.
package block

import "fmt"

// Block describes an axis-aligned region of on/off pixels. Time and height
// ranges are inclusive.
type Block struct {
	StartTime   int  `json:"start_time"`
	EndTime     int  `json:"end_time"`
	Order       int  `json:"order"`
	StartHeight int  `json:"start_height"`
	EndHeight   int  `json:"end_height"`
	Color       bool `json:"color"`
}

// Unit returns the block of a single cell before any merging.
func Unit(frame, row, order int, color bool) Block {
	return Block{
		StartTime:   frame,
		EndTime:     frame,
		Order:       order,
		StartHeight: row,
		EndHeight:   row,
		Color:       color,
	}
}

// Frames returns the number of frames spanned by the block.
func (b Block) Frames() int {
	return b.EndTime - b.StartTime + 1
}

// Rows returns the number of rows spanned by the block.
func (b Block) Rows() int {
	return b.EndHeight - b.StartHeight + 1
}

func (b Block) String() string {
	c := 0
	if b.Color {
		c = 1
	}
	return fmt.Sprintf("block{t=%d..%d h=%d..%d order=%d color=%d}",
		b.StartTime, b.EndTime, b.StartHeight, b.EndHeight, b.Order, c)
}

// Grid is a dense frames x rows x cols container of blocks. Its shape is
// fixed at construction.
type Grid struct {
	frames int
	rows   int
	cols   int
	cells  []Block
}

// NewGrid allocates a grid of zero-valued blocks.
func NewGrid(frames, rows, cols int) *Grid {
	return &Grid{
		frames: frames,
		rows:   rows,
		cols:   cols,
		cells:  make([]Block, frames*rows*cols),
	}
}

// Frames returns the frame count.
func (g *Grid) Frames() int { return g.frames }

// Rows returns the row count of every frame.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the column count of every row.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

func (g *Grid) index(frame, row, col int) int {
	return (frame*g.rows+row)*g.cols + col
}

// At returns a copy of the block stored in a cell.
func (g *Grid) At(frame, row, col int) Block {
	return g.cells[g.index(frame, row, col)]
}

// Set stores a copy of b in a cell.
func (g *Grid) Set(frame, row, col int, b Block) {
	g.cells[g.index(frame, row, col)] = b
}

// Row returns the cells of one row. The slice shares storage with the grid;
// assigning an element replaces that cell's value.
func (g *Grid) Row(frame, row int) []Block {
	start := g.index(frame, row, 0)
	return g.cells[start : start+g.cols : start+g.cols]
}

// Each calls fn for every cell in frame, row, column order.
func (g *Grid) Each(fn func(frame, row, col int, b Block)) {
	i := 0
	for f := 0; f < g.frames; f++ {
		for r := 0; r < g.rows; r++ {
			for c := 0; c < g.cols; c++ {
				fn(f, r, c, g.cells[i])
				i++
			}
		}
	}
}

// Distinct returns every distinct block value in first-seen order.
func (g *Grid) Distinct() []Block {
	seen := make(map[Block]struct{})
	var out []Block
	for _, b := range g.cells {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// Colors returns the on/off value of every cell.
func (g *Grid) Colors() [][][]bool {
	out := make([][][]bool, g.frames)
	for f := range out {
		out[f] = make([][]bool, g.rows)
		for r := range out[f] {
			row := make([]bool, g.cols)
			for c, b := range g.Row(f, r) {
				row[c] = b.Color
			}
			out[f][r] = row
		}
	}
	return out
}
