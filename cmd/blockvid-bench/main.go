package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/compaction"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/container"
)

var (
	// Command line flags
	sceneFlag      = flag.String("scene", "all", "Scenes to run (disc, stripes, noise, or all), comma separated")
	numFrames      = flag.Int("frames", 60, "Number of frames per scene")
	frameSize      = flag.Int("size", 60, "Width and height of the frames")
	partitionsFlag = flag.String("partitions", "1,5", "Partition counts to run, comma separated")
	workersFlag    = flag.String("workers", "1,4", "Worker counts to run, comma separated")
	iterations     = flag.Int("iterations", 3, "Runs per scenario")
	codecFlag      = flag.String("codec", "zstd", "Container codec used to measure encoded size")
	seed           = flag.Int64("seed", 1, "Seed of the noise scene")
	cpuProfile     = flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile     = flag.String("mem-profile", "", "Write memory profile to file")
	resultsFile    = flag.String("results", "", "File to write results to (in addition to stdout)")
	csvFile        = flag.String("csv", "", "File to write results to as CSV")
)

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	partitions, err := parseInts(*partitionsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -partitions: %v\n", err)
		os.Exit(1)
	}
	workers, err := parseInts(*workersFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -workers: %v\n", err)
		os.Exit(1)
	}
	codec, err := container.ParseCodec(*codecFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -codec: %v\n", err)
		os.Exit(1)
	}

	names := strings.Split(*sceneFlag, ",")
	if *sceneFlag == "all" {
		names = sceneNames()
	}

	log.SetDefaultLogger(log.NewStandardLogger(log.WithLevel(log.LevelWarn), log.WithOutput(os.Stderr)))

	var lines []string
	lines = append(lines, fmt.Sprintf("Benchmark Report (%s)", time.Now().Format(time.RFC3339)))
	lines = append(lines, fmt.Sprintf("Frames: %d, Size: %dx%d, Iterations: %d, Codec: %s",
		*numFrames, *frameSize, *frameSize, *iterations, codec))

	var results []BenchmarkResult
	for _, name := range names {
		scene, err := lookupScene(strings.TrimSpace(name))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		frames := scene(*numFrames, *frameSize, *seed)

		for _, p := range partitions {
			for _, w := range workers {
				fmt.Printf("Running %s with %d partitions and %d workers...\n", name, p, w)
				r, err := runScenario(context.Background(), name, frames, p, w, *iterations, codec)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Scenario failed: %v\n", err)
					continue
				}
				results = append(results, r)
				lines = append(lines, r.String())
			}
		}
	}

	for _, line := range lines {
		fmt.Println(line)
	}

	if *resultsFile != "" {
		if err := os.WriteFile(*resultsFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		}
	}

	if *csvFile != "" {
		if err := SaveResultCSV(results, *csvFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write CSV results: %v\n", err)
		}
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
		} else {
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
			}
		}
	}
}

// runScenario compresses frames iterations times and encodes the last result
func runScenario(ctx context.Context, scene string, frames [][][]bool, partitions, workers, iterations int, codec container.Codec) (BenchmarkResult, error) {
	cfg := config.NewDefaultConfig()
	cfg.Partitions = partitions
	cfg.Workers = workers

	coordinator := compaction.NewCoordinator(cfg, compaction.CoordinatorOptions{
		Logger: log.NewStandardLogger(log.WithOutput(io.Discard)),
	})

	iterations = max(iterations, 1)
	start := time.Now()
	var blocks, pixels int
	var data []byte
	for i := 0; i < iterations; i++ {
		seq, err := coordinator.Compress(ctx, frames, 30)
		if err != nil {
			return BenchmarkResult{}, err
		}
		if i == iterations-1 {
			blocks, pixels = seq.BlockCount(), seq.Pixels()
			if data, err = container.Encode(seq, codec); err != nil {
				return BenchmarkResult{}, err
			}
		}
	}
	elapsed := time.Since(start).Seconds()

	size := 0
	if len(frames) > 0 {
		size = len(frames[0])
	}
	perRun := elapsed / float64(iterations)

	r := BenchmarkResult{
		Scene:      scene,
		Frames:     len(frames),
		Size:       size,
		Partitions: partitions,
		Workers:    workers,
		Codec:      codec.String(),
		Iterations: iterations,
		Blocks:     blocks,
		Bytes:      len(data),
		Duration:   perRun,
		Timestamp:  time.Now(),
	}
	if blocks > 0 {
		r.Ratio = float64(pixels) / float64(blocks)
	}
	if perRun > 0 {
		r.Throughput = float64(len(frames)) / perRun
	}
	return r, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("%d is not positive", n)
		}
		out = append(out, n)
	}
	return out, nil
}
