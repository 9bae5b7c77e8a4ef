// ABOUTME: This file defines the telemetry metrics interface for the compression passes
// ABOUTME: including per-pass durations, per-partition block counts and whole-run outcomes

package compaction

import (
	"context"
	"time"

	"github.com/KevoDB/blockvid/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// PassMetrics interface defines telemetry methods for compression runs
type PassMetrics interface {
	telemetry.ComponentMetrics

	// StartPartition opens a span covering all passes of one partition
	StartPartition(ctx context.Context, partition int, frames, rows, cols int) (context.Context, func())

	// RecordPass records the duration of one pass over one partition
	RecordPass(ctx context.Context, partition int, pass string, duration time.Duration)

	// RecordPartition records the cells a partition started with and the blocks it ended with
	RecordPartition(ctx context.Context, partition int, cells, blocks int)

	// RecordRun records the outcome of a whole compression run
	RecordRun(ctx context.Context, partitions, frames int, duration time.Duration, success bool)
}

// passMetrics implements PassMetrics using the telemetry package
type passMetrics struct {
	tel telemetry.Telemetry
}

// NewPassMetrics creates a new PassMetrics implementation
func NewPassMetrics(tel telemetry.Telemetry) PassMetrics {
	return &passMetrics{tel: tel}
}

// NewNoopPassMetrics creates a no-op PassMetrics for testing/disabled scenarios
func NewNoopPassMetrics() PassMetrics {
	return &noopPassMetrics{}
}

func (m *passMetrics) StartPartition(ctx context.Context, partition int, frames, rows, cols int) (context.Context, func()) {
	ctx, span := m.tel.StartSpan(ctx, "compaction.partition",
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCompaction),
		attribute.Int(telemetry.AttrPartition, partition),
		attribute.Int(telemetry.AttrFrames, frames),
		attribute.Int(telemetry.AttrRows, rows),
		attribute.Int(telemetry.AttrColumns, cols),
	)
	return ctx, func() { span.End() }
}

func (m *passMetrics) RecordPass(ctx context.Context, partition int, pass string, duration time.Duration) {
	m.tel.RecordHistogram(ctx, telemetry.MetricPassDuration, duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCompaction),
		attribute.String(telemetry.AttrPass, pass),
		attribute.Int(telemetry.AttrPartition, partition),
	)
}

func (m *passMetrics) RecordPartition(ctx context.Context, partition int, cells, blocks int) {
	m.tel.RecordCounter(ctx, telemetry.MetricCellsIn, int64(cells),
		attribute.Int(telemetry.AttrPartition, partition),
	)
	m.tel.RecordCounter(ctx, telemetry.MetricBlocksOut, int64(blocks),
		attribute.Int(telemetry.AttrPartition, partition),
	)
}

func (m *passMetrics) RecordRun(ctx context.Context, partitions, frames int, duration time.Duration, success bool) {
	m.tel.RecordHistogram(ctx, telemetry.MetricRunDuration, duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCompaction),
		attribute.String(telemetry.AttrStatus, statusToString(success)),
		attribute.Int(telemetry.AttrFrames, frames),
		attribute.Int("partitions", partitions),
	)
}

func (m *passMetrics) Close() error {
	return nil
}

// noopPassMetrics provides a no-op implementation
type noopPassMetrics struct{}

func (n *noopPassMetrics) StartPartition(ctx context.Context, partition int, frames, rows, cols int) (context.Context, func()) {
	return ctx, func() {}
}
func (n *noopPassMetrics) RecordPass(ctx context.Context, partition int, pass string, duration time.Duration) {
}
func (n *noopPassMetrics) RecordPartition(ctx context.Context, partition int, cells, blocks int) {}
func (n *noopPassMetrics) RecordRun(ctx context.Context, partitions, frames int, duration time.Duration, success bool) {
}
func (n *noopPassMetrics) Close() error { return nil }

// statusToString converts success/failure to string representation
func statusToString(success bool) string {
	if success {
		return telemetry.StatusSuccess
	}
	return telemetry.StatusError
}
