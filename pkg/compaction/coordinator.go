package compaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/stats"
)

// CoordinatorOptions holds the collaborators of a Coordinator. Nil fields get
// defaults.
type CoordinatorOptions struct {
	// Logger receives pass progress and run summaries
	Logger log.Logger

	// Stats receives operation counts and latencies
	Stats stats.Collector

	// Metrics receives telemetry
	Metrics PassMetrics

	// Passes run in order over every partition
	Passes []Pass
}

// Coordinator runs the compression pipeline: it splits the input into
// column partitions and compresses each on its own worker.
type Coordinator struct {
	cfg     *config.Config
	logger  log.Logger
	stats   stats.Collector
	metrics PassMetrics
	passes  []Pass
}

// NewCoordinator creates a coordinator for cfg
func NewCoordinator(cfg *config.Config, options CoordinatorOptions) *Coordinator {
	if options.Logger == nil {
		options.Logger = log.GetDefaultLogger().WithField("component", "compaction")
	}

	if options.Stats == nil {
		options.Stats = stats.NewAtomicCollector()
	}

	if options.Metrics == nil {
		options.Metrics = NewNoopPassMetrics()
	}

	if len(options.Passes) == 0 {
		options.Passes = DefaultPasses()
	}

	return &Coordinator{
		cfg:     cfg,
		logger:  options.Logger,
		stats:   options.Stats,
		metrics: options.Metrics,
		passes:  options.Passes,
	}
}

// Stats returns the collector the coordinator reports to
func (c *Coordinator) Stats() stats.Collector {
	return c.stats
}

// Compress compresses frames using the configured partition count.
func (c *Coordinator) Compress(ctx context.Context, frames [][][]bool, fps int) (*block.Sequence, error) {
	return c.CompressPartitions(ctx, frames, fps, c.cfg.Partitions)
}

// CompressPartitions compresses frames split into n column partitions. The
// input is validated and split before any grid is built; an error from any
// partition aborts the whole run.
func (c *Coordinator) CompressPartitions(ctx context.Context, frames [][][]bool, fps, n int) (*block.Sequence, error) {
	start := c.stats.StartRun()

	seq, err := c.run(ctx, frames, fps, n)
	c.metrics.RecordRun(ctx, n, len(frames), time.Since(start), err == nil)
	if err != nil {
		c.trackError(err)
		c.logger.Error("compression failed: %v", err)
		return nil, err
	}

	c.stats.FinishRun(start, uint64(len(frames)), uint64(n))
	c.logger.WithFields(map[string]interface{}{
		"frames":     seq.FrameCount,
		"partitions": len(seq.Partitions),
	}).Info("compressed %d pixels into %d blocks in %s", seq.Pixels(), seq.BlockCount(), time.Since(start))

	return seq, nil
}

func (c *Coordinator) run(ctx context.Context, frames [][][]bool, fps, n int) (*block.Sequence, error) {
	_, width, err := block.ValidateFrames(frames)
	if err != nil {
		return nil, fmt.Errorf("invalid frames: %w", err)
	}

	ranges, err := block.SplitColumns(width, n)
	if err != nil {
		return nil, fmt.Errorf("failed to partition frames: %w", err)
	}

	parts := make([]*block.Partition, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i, cols := range ranges {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p, err := c.buildPartition(frames, i, cols)
			if err != nil {
				return err
			}

			c.CompressPartition(gctx, p)
			parts[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &block.Sequence{
		Partitions: parts,
		FPS:        fps,
		FrameCount: len(frames),
	}, nil
}

func (c *Coordinator) workers() int {
	if c.cfg.Workers <= 0 {
		return 1
	}
	return c.cfg.Workers
}

func (c *Coordinator) buildPartition(frames [][][]bool, index int, cols block.ColumnRange) (*block.Partition, error) {
	start := time.Now()

	p, err := block.BuildPartition(frames, index, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to build partition %d: %w", index, err)
	}

	c.stats.TrackOperationWithLatency(stats.OpBuild, uint64(time.Since(start).Nanoseconds()))
	return p, nil
}

// CompressPartition runs every pass over p's grid in order.
func (c *Coordinator) CompressPartition(ctx context.Context, p *block.Partition) {
	g := p.Grid
	logger := c.logger.WithField("partition", p.Index)

	ctx, end := c.metrics.StartPartition(ctx, p.Index, g.Frames(), g.Rows(), g.Cols())
	defer end()

	for _, pass := range c.passes {
		start := time.Now()
		pass.Apply(g)
		elapsed := time.Since(start)

		c.stats.TrackOperationWithLatency(stats.OperationType(pass.Name()), uint64(elapsed.Nanoseconds()))
		c.metrics.RecordPass(ctx, p.Index, pass.Name(), elapsed)
		logger.WithField("pass", pass.Name()).Debug("pass finished in %s", elapsed)
	}

	blocks := len(g.Distinct())
	c.stats.TrackCompression(uint64(g.Len()), uint64(blocks))
	c.metrics.RecordPartition(ctx, p.Index, g.Len(), blocks)
	logger.Debug("%d cells compressed into %d blocks", g.Len(), blocks)
}

func (c *Coordinator) trackError(err error) {
	switch {
	case block.ConfigurationError.Has(err):
		c.stats.TrackError("configuration")
	case block.DimensionMismatch.Has(err):
		c.stats.TrackError("dimension_mismatch")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.stats.TrackError("canceled")
	default:
		c.stats.TrackError("other")
	}
}
