package compaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/stats"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

func newTestCoordinator(partitions, workers int) *Coordinator {
	return NewCoordinator(testConfig(partitions, workers), CoordinatorOptions{
		Logger: quietLogger(),
	})
}

func TestCompressEndToEnd(t *testing.T) {
	c := newTestCoordinator(1, 1)

	seq, err := c.Compress(context.Background(), uniform(2, 2, 4, T), 30)
	require.NoError(t, err)

	require.Equal(t, 30, seq.FPS)
	require.Equal(t, 2, seq.FrameCount)
	require.Len(t, seq.Partitions, 1)

	want := block.Block{StartTime: 0, EndTime: 1, Order: 0, StartHeight: 0, EndHeight: 1, Color: T}
	g := seq.Partitions[0].Grid
	require.Equal(t, 16, g.Len())
	g.Each(func(f, r, col int, b block.Block) {
		require.Equal(t, want, b, "cell %d/%d/%d", f, r, col)
	})
	require.Equal(t, []block.Block{want}, g.Distinct())
	require.Equal(t, 16.0, seq.Ratio())
}

func TestCompressPartitionInPlace(t *testing.T) {
	c := newTestCoordinator(1, 1)

	p, err := block.BuildPartition(uniform(2, 1, 2, F), 3, block.ColumnRange{Start: 0, End: 2})
	require.NoError(t, err)

	c.CompressPartition(context.Background(), p)

	want := block.Block{StartTime: 0, EndTime: 1, Order: 0, StartHeight: 0, EndHeight: 0, Color: F}
	require.Equal(t, []block.Block{want}, p.Grid.Distinct())
	require.Equal(t, 3, p.Index)
}

func TestCompressPreservesShapeAndColors(t *testing.T) {
	frames := randomFrames(7, 6, 8, 10)
	c := newTestCoordinator(5, 2)

	seq, err := c.Compress(context.Background(), frames, 12)
	require.NoError(t, err)

	require.Len(t, seq.Partitions, 5)
	for i, p := range seq.Partitions {
		require.Equal(t, i, p.Index)
		require.Equal(t, 6, p.Grid.Frames())
		require.Equal(t, 8, p.Grid.Rows())
		require.Equal(t, 2, p.Grid.Cols())
		p.Grid.Each(func(f, r, col int, b block.Block) {
			require.True(t, b.StartTime <= f && f <= b.EndTime && b.StartHeight <= r && r <= b.EndHeight,
				"cell %d/%d/%d holds %s", f, r, col, b)
		})
	}
	require.Equal(t, frames, seq.Frames())
	require.Equal(t, 6*8*10, seq.Pixels())
	require.LessOrEqual(t, seq.BlockCount(), seq.Pixels())
}

func TestCompressIsDeterministicAcrossWorkerCounts(t *testing.T) {
	frames := randomFrames(11, 5, 6, 20)

	serial, err := newTestCoordinator(5, 1).Compress(context.Background(), frames, 30)
	require.NoError(t, err)
	parallel, err := newTestCoordinator(5, 5).Compress(context.Background(), frames, 30)
	require.NoError(t, err)

	for i := range serial.Partitions {
		require.Equal(t, serial.Partitions[i].Grid, parallel.Partitions[i].Grid)
	}
}

func TestCompressRejectsIndivisibleWidth(t *testing.T) {
	collector := stats.NewAtomicCollector()
	c := NewCoordinator(testConfig(3, 1), CoordinatorOptions{Logger: quietLogger(), Stats: collector})

	_, err := c.Compress(context.Background(), uniform(1, 2, 10, F), 30)
	require.Error(t, err)
	require.True(t, block.ConfigurationError.Has(err))

	errs := collector.GetStats()["errors"].(map[string]uint64)
	require.Equal(t, uint64(1), errs["configuration"])
	_, built := collector.GetStats()["build_ops"]
	require.False(t, built, "no partition may be built after a configuration error")
}

func TestCompressRejectsRaggedFrames(t *testing.T) {
	frames := uniform(2, 2, 4, T)
	frames[1][1] = []bool{T, T}

	_, err := newTestCoordinator(2, 1).Compress(context.Background(), frames, 30)
	require.Error(t, err)
	require.True(t, block.DimensionMismatch.Has(err))
}

func TestCompressPartitionsOverride(t *testing.T) {
	c := newTestCoordinator(5, 1)

	seq, err := c.CompressPartitions(context.Background(), uniform(1, 1, 6, T), 30, 3)
	require.NoError(t, err)
	require.Len(t, seq.Partitions, 3)
	require.Equal(t, 2, seq.Partitions[0].Grid.Cols())
}

func TestCompressCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCoordinator(5, 1).Compress(ctx, uniform(1, 1, 10, T), 30)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestCompressReportsStatsAndTelemetry(t *testing.T) {
	collector := stats.NewAtomicCollector()
	rec := telemetry.NewRecorder()
	c := NewCoordinator(testConfig(2, 2), CoordinatorOptions{
		Logger:  quietLogger(),
		Stats:   collector,
		Metrics: NewPassMetrics(rec),
	})

	seq, err := c.Compress(context.Background(), randomFrames(3, 4, 4, 8), 30)
	require.NoError(t, err)

	snapshot := collector.GetStats()
	for _, op := range []string{"build", "horizontal", "vertical", "temporal"} {
		require.Equal(t, uint64(2), snapshot[op+"_ops"], op)
	}
	require.Equal(t, uint64(seq.Pixels()), snapshot["cells_in"])
	require.Equal(t, uint64(seq.BlockCount()), snapshot["blocks_out"])

	run := snapshot["run"].(map[string]interface{})
	require.Equal(t, uint64(1), run["runs"])
	require.Equal(t, uint64(4), run["last_frames"])

	require.Equal(t, int64(seq.Pixels()), rec.Counter(telemetry.MetricCellsIn))
	require.Equal(t, int64(seq.BlockCount()), rec.Counter(telemetry.MetricBlocksOut))
	require.Len(t, rec.Samples(telemetry.MetricPassDuration), 6)
	require.Len(t, rec.Samples(telemetry.MetricRunDuration), 1)
	require.Equal(t, []string{"compaction.partition", "compaction.partition"}, rec.Spans())
}

type countingPass struct {
	applied int
}

func (p *countingPass) Name() string { return "counting" }

func (p *countingPass) Apply(g *block.Grid) { p.applied++ }

func TestCoordinatorCustomPasses(t *testing.T) {
	pass := &countingPass{}
	c := NewCoordinator(testConfig(4, 1), CoordinatorOptions{
		Logger: quietLogger(),
		Passes: []Pass{pass},
	})

	seq, err := c.Compress(context.Background(), uniform(1, 1, 8, T), 30)
	require.NoError(t, err)
	require.Equal(t, 4, pass.applied)
	require.Equal(t, 8, seq.BlockCount())
}

func TestNoopPassMetrics(t *testing.T) {
	m := NewNoopPassMetrics()
	ctx, end := m.StartPartition(context.Background(), 0, 1, 1, 1)
	m.RecordPass(ctx, 0, telemetry.PassHorizontal, 0)
	m.RecordPartition(ctx, 0, 1, 1)
	m.RecordRun(ctx, 1, 1, 0, true)
	end()
	require.NoError(t, m.Close())
}
