package compaction

import "github.com/KevoDB/blockvid/pkg/block"

// Pass is one full sweep over a partition grid. Passes never fail on a
// well-formed grid and never change its shape.
type Pass interface {
	// Name identifies the pass in logs, stats and telemetry
	Name() string

	// Apply compresses the grid in place
	Apply(g *block.Grid)
}

// DefaultPasses returns the horizontal, vertical and temporal passes in the
// order they must run.
func DefaultPasses() []Pass {
	return []Pass{HorizontalPass{}, VerticalPass{}, TemporalPass{}}
}
