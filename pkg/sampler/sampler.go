// Package sampler turns image sequences into the on/off frames the
// compression pipeline consumes.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/stats"
)

var (
	// ErrNoFrames is returned when sampling keeps no frame.
	ErrNoFrames = errors.New("no frames sampled")
	// ErrInvalidSize is returned when the output width or height is not positive.
	ErrInvalidSize = errors.New("invalid output size")
)

// Sampler scales frames to Width x Height and marks a pixel on when its luma
// is below Threshold.
type Sampler struct {
	Width     int
	Height    int
	Threshold uint8

	// Frames are kept every SourceFPS/OutputFPS input frames
	SourceFPS float64
	OutputFPS int

	// MaxFrames caps the kept frames; 0 keeps all
	MaxFrames int

	Logger log.Logger
	Stats  stats.Collector
}

// FromConfig builds a sampler from the sampling section of cfg.
func FromConfig(cfg *config.Config) *Sampler {
	return &Sampler{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Threshold: cfg.Threshold,
		SourceFPS: cfg.SourceFPS,
		OutputFPS: cfg.OutputFPS,
		MaxFrames: cfg.MaxFrames,
	}
}

// Skip returns the input frame stride.
func (s *Sampler) Skip() int {
	if s.OutputFPS <= 0 {
		return 1
	}
	skip := int(s.SourceFPS / float64(s.OutputFPS))
	if skip < 1 {
		return 1
	}
	return skip
}

func (s *Sampler) logger() log.Logger {
	if s.Logger == nil {
		return log.GetDefaultLogger().WithField("component", "sampler")
	}
	return s.Logger
}

func (s *Sampler) keep(index, kept int) (bool, bool) {
	if s.MaxFrames > 0 && kept >= s.MaxFrames {
		return false, true
	}
	return index%s.Skip() == 0, false
}

// Binarize scales img bilinearly to the sampler's size and thresholds it.
func (s *Sampler) Binarize(img image.Image) ([][]bool, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
	}

	start := time.Now()
	gray := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	frame := make([][]bool, s.Height)
	for y := range frame {
		row := make([]bool, s.Width)
		pix := gray.Pix[y*gray.Stride : y*gray.Stride+s.Width]
		for x, v := range pix {
			row[x] = v < s.Threshold
		}
		frame[y] = row
	}

	if s.Stats != nil {
		s.Stats.TrackOperationWithLatency(stats.OpSample, uint64(time.Since(start).Nanoseconds()))
	}
	return frame, nil
}

// SampleImages binarizes the kept images of a frame sequence.
func (s *Sampler) SampleImages(images []image.Image) ([][][]bool, error) {
	var frames [][][]bool
	for i, img := range images {
		keep, done := s.keep(i, len(frames))
		if done {
			break
		}
		if !keep {
			continue
		}

		frame, err := s.Binarize(img)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// IsFrameFile reports whether name has an image extension SampleDir reads.
func IsFrameFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// SampleDir reads the image files of dir in lexical order as consecutive
// frames. Only kept frames are decoded.
func (s *Sampler) SampleDir(ctx context.Context, dir string) ([][][]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsFrameFile(e.Name()) {
			names = append(names, e.Name())
		}
	}

	logger := s.logger()
	logger.Debug("found %d frame files in %s, keeping every %d", len(names), dir, s.Skip())

	var frames [][][]bool
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		keep, done := s.keep(i, len(frames))
		if done {
			break
		}
		if !keep {
			continue
		}

		img, err := s.decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		frame, err := s.Binarize(img)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	logger.Info("sampled %d frames from %s", len(frames), dir)
	return frames, nil
}

func (s *Sampler) decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	if s.Stats != nil {
		if info, err := f.Stat(); err == nil {
			s.Stats.TrackBytes(false, uint64(info.Size()))
		}
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// SampleGIF reads an animated GIF as a frame sequence. Frames are composited
// onto the logical screen honoring each frame's disposal method. When
// SourceFPS is zero it is derived from the first frame delay.
func (s *Sampler) SampleGIF(r io.Reader) ([][][]bool, error) {
	anim, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gif: %w", err)
	}

	sampler := *s
	if sampler.SourceFPS <= 0 && len(anim.Delay) > 0 && anim.Delay[0] > 0 {
		sampler.SourceFPS = 100 / float64(anim.Delay[0])
	}

	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() && len(anim.Image) > 0 {
		bounds = anim.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	var frames [][][]bool
	for i, paletted := range anim.Image {
		var previous *image.RGBA
		disposal := byte(0)
		if i < len(anim.Disposal) {
			disposal = anim.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			draw.Draw(previous, bounds, canvas, bounds.Min, draw.Src)
		}

		draw.Draw(canvas, paletted.Bounds(), paletted, paletted.Bounds().Min, draw.Over)

		keep, done := sampler.keep(i, len(frames))
		if done {
			break
		}
		if keep {
			frame, err := sampler.Binarize(canvas)
			if err != nil {
				return nil, err
			}
			frames = append(frames, frame)
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, paletted.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}
