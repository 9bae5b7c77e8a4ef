package block

import "github.com/zeebo/errs"

var (
	// ConfigurationError is returned when the grid cannot be split into the
	// requested number of partitions.
	ConfigurationError = errs.Class("configuration")

	// DimensionMismatch is returned when the frames of a sequence do not share
	// the same row and column counts.
	DimensionMismatch = errs.Class("dimension mismatch")
)
