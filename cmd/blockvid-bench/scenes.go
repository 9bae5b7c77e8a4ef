package main

import (
	"fmt"
	"math"
	"math/rand"
)

// Scene generates frames x size x size on/off frames
type Scene func(frames, size int, seed int64) [][][]bool

var scenes = map[string]Scene{
	"disc":    discScene,
	"stripes": stripeScene,
	"noise":   noiseScene,
}

func sceneNames() []string {
	return []string{"disc", "stripes", "noise"}
}

func lookupScene(name string) (Scene, error) {
	s, ok := scenes[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene: %s", name)
	}
	return s, nil
}

func newFrames(frames, size int) [][][]bool {
	out := make([][][]bool, frames)
	for f := range out {
		out[f] = make([][]bool, size)
		for r := range out[f] {
			out[f][r] = make([]bool, size)
		}
	}
	return out
}

// discScene moves a dark disc around a circle on a light background
func discScene(frames, size int, _ int64) [][][]bool {
	out := newFrames(frames, size)
	radius := float64(size) / 6
	orbit := float64(size) / 4
	center := float64(size) / 2

	for f := range out {
		angle := 2 * math.Pi * float64(f) / float64(max(frames, 1))
		cx := center + orbit*math.Cos(angle)
		cy := center + orbit*math.Sin(angle)
		for r := range out[f] {
			for c := range out[f][r] {
				dx, dy := float64(c)+0.5-cx, float64(r)+0.5-cy
				out[f][r][c] = dx*dx+dy*dy <= radius*radius
			}
		}
	}
	return out
}

// stripeScene scrolls vertical stripes one column per frame
func stripeScene(frames, size int, _ int64) [][][]bool {
	out := newFrames(frames, size)
	width := max(size/8, 1)
	for f := range out {
		for r := range out[f] {
			for c := range out[f][r] {
				out[f][r][c] = ((c+f)/width)%2 == 0
			}
		}
	}
	return out
}

// noiseScene is uniform random noise, the worst case for every pass
func noiseScene(frames, size int, seed int64) [][][]bool {
	rng := rand.New(rand.NewSource(seed))
	out := newFrames(frames, size)
	for f := range out {
		for r := range out[f] {
			for c := range out[f][r] {
				out[f][r][c] = rng.Intn(2) == 0
			}
		}
	}
	return out
}
