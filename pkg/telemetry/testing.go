// ABOUTME: In-memory telemetry recorder for tests - captures counters, histogram samples and span names
// ABOUTME: Lets tests of real components assert on what they reported without running an exporter

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recorder is a Telemetry that keeps everything it is given in memory.
type Recorder struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string][]float64
	spans      []string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		counters:   make(map[string]int64),
		histograms: make(map[string][]float64),
	}
}

// NewDisabled returns a no-op telemetry instance for tests that ignore telemetry.
func NewDisabled() Telemetry {
	return NewNoop()
}

func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *Recorder) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += value
}

func (r *Recorder) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	r.mu.Lock()
	r.spans = append(r.spans, name)
	r.mu.Unlock()
	return ctx, trace.SpanFromContext(ctx)
}

func (r *Recorder) Shutdown(ctx context.Context) error {
	return nil
}

// Counter returns the accumulated value of a counter.
func (r *Recorder) Counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

// Samples returns a copy of the values recorded on a histogram.
func (r *Recorder) Samples(name string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.histograms[name]...)
}

// Spans returns the names of all started spans in start order.
func (r *Recorder) Spans() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spans...)
}

var _ Telemetry = (*Recorder)(nil)
