package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult stores the results of one scenario
type BenchmarkResult struct {
	Scene      string
	Frames     int
	Size       int
	Partitions int
	Workers    int
	Codec      string
	Iterations int
	Blocks     int
	Ratio      float64 // pixels per block
	Duration   float64 // mean seconds per run
	Throughput float64 // frames per second
	Bytes      int     // encoded container size
	Timestamp  time.Time
}

func (r BenchmarkResult) String() string {
	return fmt.Sprintf("%-8s %4d frames %4dx%-4d p=%d w=%d: %8d blocks, ratio %8.2f, %8.3f ms/run, %10.1f frames/sec, %s %d bytes",
		r.Scene, r.Frames, r.Size, r.Size, r.Partitions, r.Workers, r.Blocks, r.Ratio,
		r.Duration*1000, r.Throughput, r.Codec, r.Bytes)
}

var csvHeader = []string{
	"Timestamp", "Scene", "Frames", "Size", "Partitions", "Workers", "Codec",
	"Iterations", "Blocks", "Ratio", "Duration", "Throughput", "Bytes",
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.Scene,
			strconv.Itoa(r.Frames),
			strconv.Itoa(r.Size),
			strconv.Itoa(r.Partitions),
			strconv.Itoa(r.Workers),
			r.Codec,
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Blocks),
			fmt.Sprintf("%.2f", r.Ratio),
			fmt.Sprintf("%.6f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
			strconv.Itoa(r.Bytes),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadResultCSV loads benchmark results from a CSV file
func LoadResultCSV(filename string) ([]BenchmarkResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	// Skip header
	if len(records) <= 1 {
		return []BenchmarkResult{}, nil
	}
	records = records[1:]

	results := make([]BenchmarkResult, 0, len(records))
	for _, record := range records {
		if len(record) < len(csvHeader) {
			continue
		}

		timestamp, _ := time.Parse(time.RFC3339, record[0])
		frames, _ := strconv.Atoi(record[2])
		size, _ := strconv.Atoi(record[3])
		partitions, _ := strconv.Atoi(record[4])
		workers, _ := strconv.Atoi(record[5])
		iterations, _ := strconv.Atoi(record[7])
		blocks, _ := strconv.Atoi(record[8])
		ratio, _ := strconv.ParseFloat(record[9], 64)
		duration, _ := strconv.ParseFloat(record[10], 64)
		throughput, _ := strconv.ParseFloat(record[11], 64)
		bytes, _ := strconv.Atoi(record[12])

		results = append(results, BenchmarkResult{
			Scene:      record[1],
			Frames:     frames,
			Size:       size,
			Partitions: partitions,
			Workers:    workers,
			Codec:      record[6],
			Iterations: iterations,
			Blocks:     blocks,
			Ratio:      ratio,
			Duration:   duration,
			Throughput: throughput,
			Bytes:      bytes,
			Timestamp:  timestamp,
		})
	}

	return results, nil
}
