package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevoDB/blockvid/pkg/telemetry"
)

const (
	DefaultConfigFileName = "blockvid.json"
	CurrentConfigVersion  = 1

	// MaxPartitions is the number of timetable days a partition can map to.
	MaxPartitions = 5
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("config not found")
)

// Codec names accepted for .bvc output.
const (
	CodecNone   = "none"
	CodecZstd   = "zstd"
	CodecSnappy = "snappy"
)

type Config struct {
	Version int `json:"version"`

	// Sampling
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Threshold uint8   `json:"threshold"`
	SourceFPS float64 `json:"source_fps"`
	OutputFPS int     `json:"output_fps"`
	MaxFrames int     `json:"max_frames"` // 0 keeps every sampled frame

	// Compression
	Partitions int `json:"partitions"`
	Workers    int `json:"workers"`

	// Timetable mapping
	StartHour      int   `json:"start_hour"`
	EndHour        int   `json:"end_hour"`
	SemesterYear   int   `json:"semester_year"`
	SemesterSpring bool  `json:"semester_spring"`
	Seed           int64 `json:"seed"`

	// Output
	Codec string `json:"codec"`

	Telemetry telemetry.Config `json:"telemetry"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	tel := telemetry.DefaultConfig()
	tel.Enabled = false

	return &Config{
		Version: CurrentConfigVersion,

		Width:     100,
		Height:    100,
		Threshold: 128,
		SourceFPS: 30,
		OutputFPS: 30,

		Partitions: MaxPartitions,
		Workers:    1,

		StartHour:    8,
		EndHour:      22,
		SemesterYear: 2026,
		Seed:         1,

		Codec: CodecZstd,

		Telemetry: tel,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}

	if c.Partitions <= 0 || c.Partitions > MaxPartitions {
		return fmt.Errorf("%w: partitions must be between 1 and %d", ErrInvalidConfig, MaxPartitions)
	}

	if c.Width%c.Partitions != 0 {
		return fmt.Errorf("%w: width %d is not divisible by %d partitions", ErrInvalidConfig, c.Width, c.Partitions)
	}

	if c.SourceFPS <= 0 || c.OutputFPS <= 0 {
		return fmt.Errorf("%w: frame rates must be positive", ErrInvalidConfig)
	}

	if c.MaxFrames < 0 {
		return fmt.Errorf("%w: max frames must not be negative", ErrInvalidConfig)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}

	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return fmt.Errorf("%w: hour window %d-%d is not valid", ErrInvalidConfig, c.StartHour, c.EndHour)
	}

	if c.Height > (c.EndHour-c.StartHour)*60 {
		return fmt.Errorf("%w: height %d exceeds the minutes in the hour window", ErrInvalidConfig, c.Height)
	}

	switch c.Codec {
	case CodecNone, CodecZstd, CodecSnappy:
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}

	if c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

// Load reads a configuration file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path, replacing any existing file atomically
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// SlabWidth returns the column count of one partition.
func (c *Config) SlabWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Width / c.Partitions
}
