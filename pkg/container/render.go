package container

import "fmt"

const (
	unset int8 = iota
	off
	on
)

// Render reconstructs the full-width frames. Each (frame, row) of a
// partition is split into as many equal chunks as there are distinct orders
// covering it; chunk o takes the color of the blocks with order o.
func (a *Archive) Render() ([][][]bool, error) {
	width := a.SlabWidth * len(a.Partitions)
	out := make([][][]bool, a.FrameCount)
	for f := range out {
		out[f] = make([][]bool, a.Rows)
		for r := range out[f] {
			out[f][r] = make([]bool, width)
		}
	}

	// state[f][r][order]
	state := make([][][]int8, a.FrameCount)
	for f := range state {
		state[f] = make([][]int8, a.Rows)
		for r := range state[f] {
			state[f][r] = make([]int8, a.SlabWidth)
		}
	}

	for pi, p := range a.Partitions {
		for f := range state {
			for r := range state[f] {
				clear(state[f][r])
			}
		}

		for _, b := range p.Blocks {
			color := off
			if b.Color {
				color = on
			}
			for f := b.StartTime; f <= b.EndTime; f++ {
				for r := b.StartHeight; r <= b.EndHeight; r++ {
					cell := &state[f][r][b.Order]
					if *cell != unset && *cell != color {
						return nil, fmt.Errorf("%w: partition %d has conflicting colors for order %d at frame %d row %d",
							ErrCorrupt, p.Index, b.Order, f, r)
					}
					*cell = color
				}
			}
		}

		base := pi * a.SlabWidth
		for f := range state {
			for r, orders := range state[f] {
				k := 0
				for _, s := range orders {
					if s != unset {
						k++
					}
				}
				if k == 0 || a.SlabWidth%k != 0 {
					return nil, fmt.Errorf("%w: partition %d frame %d row %d has %d orders for %d columns",
						ErrCorrupt, p.Index, f, r, k, a.SlabWidth)
				}

				chunk := a.SlabWidth / k
				row := out[f][r][base : base+a.SlabWidth]
				for o := 0; o < k; o++ {
					if orders[o] == unset {
						return nil, fmt.Errorf("%w: partition %d frame %d row %d is missing order %d",
							ErrCorrupt, p.Index, f, r, o)
					}
					for c := o * chunk; c < (o+1)*chunk; c++ {
						row[c] = orders[o] == on
					}
				}
			}
		}
	}
	return out, nil
}
