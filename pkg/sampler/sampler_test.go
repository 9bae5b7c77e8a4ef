package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/stats"
)

// halfDark returns a size x size image whose left half is black.
func halfDark(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x >= size/2 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func solid(size int, y uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	return img
}

func newSampler(w, h int) *Sampler {
	return &Sampler{Width: w, Height: h, Threshold: 128, SourceFPS: 30, OutputFPS: 30}
}

func TestSkip(t *testing.T) {
	testCases := []struct {
		source float64
		output int
		want   int
	}{
		{30, 30, 1},
		{60, 30, 2},
		{29.97, 10, 2},
		{24, 30, 1},
		{30, 0, 1},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%v/%d", tc.source, tc.output), func(t *testing.T) {
			s := &Sampler{SourceFPS: tc.source, OutputFPS: tc.output}
			require.Equal(t, tc.want, s.Skip())
		})
	}
}

func TestBinarize(t *testing.T) {
	frame, err := newSampler(2, 2).Binarize(halfDark(8))
	require.NoError(t, err)
	require.Equal(t, [][]bool{{true, false}, {true, false}}, frame)
}

func TestBinarizeThreshold(t *testing.T) {
	s := newSampler(1, 1)

	frame, err := s.Binarize(solid(4, 127))
	require.NoError(t, err)
	require.True(t, frame[0][0])

	frame, err = s.Binarize(solid(4, 128))
	require.NoError(t, err)
	require.False(t, frame[0][0])
}

func TestBinarizeInvalidSize(t *testing.T) {
	_, err := newSampler(0, 4).Binarize(solid(4, 0))
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestSampleImagesSkipsAndCaps(t *testing.T) {
	images := []image.Image{solid(4, 0), solid(4, 255), solid(4, 0), solid(4, 255), solid(4, 0)}
	s := newSampler(2, 2)
	s.SourceFPS = 60

	frames, err := s.SampleImages(images)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for _, f := range frames {
		require.True(t, f[0][0], "only dark frames are kept")
	}

	s.MaxFrames = 2
	frames, err = s.SampleImages(images)
	require.NoError(t, err)
	require.Len(t, frames, 2)
}

func TestSampleImagesEmpty(t *testing.T) {
	_, err := newSampler(2, 2).SampleImages(nil)
	require.ErrorIs(t, err, ErrNoFrames)
}

func TestSampleDir(t *testing.T) {
	dir := t.TempDir()
	for i, img := range []image.Image{solid(6, 0), halfDark(6), solid(6, 255)} {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame%03d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644))

	collector := stats.NewAtomicCollector()
	s := newSampler(2, 1)
	s.Stats = collector

	frames, err := s.SampleDir(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, [][][]bool{
		{{true, true}},
		{{true, false}},
		{{false, false}},
	}, frames)

	snapshot := collector.GetStats()
	require.Equal(t, uint64(3), snapshot["sample_ops"])
	require.NotZero(t, snapshot["total_bytes_read"])
}

func TestSampleDirErrors(t *testing.T) {
	_, err := newSampler(2, 2).SampleDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = newSampler(2, 2).SampleDir(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrNoFrames)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644))
	_, err = newSampler(2, 2).SampleDir(context.Background(), dir)
	require.ErrorContains(t, err, "broken.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newSampler(2, 2).SampleDir(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSampleGIF(t *testing.T) {
	palette := color.Palette{color.Black, color.White}

	background := image.NewPaletted(image.Rect(0, 0, 8, 8), palette)
	for i := range background.Pix {
		background.Pix[i] = 1
	}
	corner := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, &gif.GIF{
		Image: []*image.Paletted{background, corner},
		Delay: []int{4, 4},
	}))

	s := &Sampler{Width: 2, Height: 2, Threshold: 128, OutputFPS: 25}
	frames, err := s.SampleGIF(&buf)
	require.NoError(t, err)
	require.Equal(t, [][][]bool{
		{{false, false}, {false, false}},
		{{true, false}, {false, false}},
	}, frames)
}

func TestFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.MaxFrames = 12

	s := FromConfig(cfg)
	require.Equal(t, 100, s.Width)
	require.Equal(t, 100, s.Height)
	require.Equal(t, uint8(128), s.Threshold)
	require.Equal(t, 12, s.MaxFrames)
	require.Equal(t, 1, s.Skip())
}

func TestIsFrameFile(t *testing.T) {
	require.True(t, IsFrameFile("a.PNG"))
	require.True(t, IsFrameFile("b.jpeg"))
	require.False(t, IsFrameFile("c.bmp"))
	require.False(t, IsFrameFile("noext"))
}
