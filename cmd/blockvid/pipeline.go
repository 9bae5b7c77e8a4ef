package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/compaction"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/container"
	"github.com/KevoDB/blockvid/pkg/lesson"
	"github.com/KevoDB/blockvid/pkg/sampler"
	"github.com/KevoDB/blockvid/pkg/stats"
	"github.com/KevoDB/blockvid/pkg/telemetry"
)

// pipeline wires the sampler, the coordinator and the writers to one
// config, stats collector and telemetry provider
type pipeline struct {
	cfg         *config.Config
	logger      log.Logger
	stats       *stats.AtomicCollector
	tel         telemetry.Telemetry
	coordinator *compaction.Coordinator
}

func newPipeline(cfg *config.Config, logger log.Logger) (*pipeline, error) {
	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}

	collector := stats.NewAtomicCollector()
	coordinator := compaction.NewCoordinator(cfg, compaction.CoordinatorOptions{
		Logger:  logger.WithField("component", telemetry.ComponentCompaction),
		Stats:   collector,
		Metrics: compaction.NewPassMetrics(tel),
	})

	return &pipeline{
		cfg:         cfg,
		logger:      logger,
		stats:       collector,
		tel:         tel,
		coordinator: coordinator,
	}, nil
}

func (p *pipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.tel.Shutdown(ctx)
}

func (p *pipeline) sampler() *sampler.Sampler {
	s := sampler.FromConfig(p.cfg)
	s.Logger = p.logger.WithField("component", telemetry.ComponentSampler)
	s.Stats = p.stats
	return s
}

// sample reads frames from a directory of images or a GIF file
func (p *pipeline) sample(ctx context.Context, path string) ([][][]bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frames: %w", err)
	}
	if info.IsDir() {
		return p.sampler().SampleDir(ctx, path)
	}

	if strings.ToLower(filepath.Ext(path)) == container.Extension {
		return p.load(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frames: %w", err)
	}
	defer f.Close()
	return p.sampler().SampleGIF(f)
}

// load renders the frames stored in a block container
func (p *pipeline) load(path string) ([][][]bool, error) {
	start := time.Now()
	a, n, err := container.ReadFile(path)
	if err != nil {
		p.stats.TrackError("decode")
		return nil, err
	}
	p.stats.TrackBytes(false, uint64(n))

	frames, err := a.Render()
	if err != nil {
		p.stats.TrackError("decode")
		return nil, err
	}
	p.stats.TrackOperationWithLatency(stats.OpDecode, uint64(time.Since(start).Nanoseconds()))
	return frames, nil
}

func (p *pipeline) compress(ctx context.Context, frames [][][]bool) (*block.Sequence, error) {
	return p.coordinator.Compress(ctx, frames, p.cfg.OutputFPS)
}

func (p *pipeline) lessons(seq *block.Sequence) (*lesson.LessonVideo, error) {
	return lesson.NewBuilder(lesson.OptionsFromConfig(p.cfg)).Build(seq)
}

// export writes seq to path: a block container for .bvc, lessons otherwise.
// It returns the number of bytes written.
func (p *pipeline) export(seq *block.Sequence, path string) (int, error) {
	start := time.Now()
	n, err := p.write(seq, path)
	if err != nil {
		p.stats.TrackError("export")
		return 0, err
	}
	p.stats.TrackBytes(true, uint64(n))
	p.stats.TrackOperationWithLatency(stats.OpExport, uint64(time.Since(start).Nanoseconds()))
	telemetry.RecordBytes(context.Background(), p.tel, telemetry.MetricBytes, int64(n))
	p.logger.Info("Wrote %d bytes to %s", n, path)
	return n, nil
}

func (p *pipeline) write(seq *block.Sequence, path string) (int, error) {
	if strings.ToLower(filepath.Ext(path)) == container.Extension {
		codec, err := container.ParseCodec(p.cfg.Codec)
		if err != nil {
			return 0, err
		}
		start := time.Now()
		n, err := container.WriteFile(path, seq, codec)
		if err == nil {
			p.stats.TrackOperationWithLatency(stats.OpEncode, uint64(time.Since(start).Nanoseconds()))
		}
		return n, err
	}

	video, err := p.lessons(seq)
	if err != nil {
		return 0, err
	}
	return writeLessons(path, video)
}

func writeLessons(path string, video *lesson.LessonVideo) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw := &countingWriter{w: f}
	if err := lesson.WriteJSON(cw, video); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// summary formats the closing line of a run
func summary(pixels, blocks int) string {
	ratio := 0.0
	if blocks > 0 {
		ratio = float64(pixels) / float64(blocks)
	}
	return fmt.Sprintf("%d total pixels compressed into %d blocks. %s times smaller compression",
		pixels, blocks, strconv.FormatFloat(ratio, 'f', -1, 64))
}
