package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != CurrentConfigVersion {
		t.Errorf("expected version %d, got %d", CurrentConfigVersion, cfg.Version)
	}

	if cfg.Partitions != 5 {
		t.Errorf("expected 5 partitions, got %d", cfg.Partitions)
	}

	if cfg.Threshold != 128 {
		t.Errorf("expected threshold 128, got %d", cfg.Threshold)
	}

	if cfg.StartHour != 8 || cfg.EndHour != 22 {
		t.Errorf("expected hour window 8-22, got %d-%d", cfg.StartHour, cfg.EndHour)
	}

	if cfg.SlabWidth() != 20 {
		t.Errorf("expected slab width 20, got %d", cfg.SlabWidth())
	}

	if cfg.Telemetry.Enabled {
		t.Errorf("expected telemetry disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name: "invalid version",
			mutate: func(c *Config) {
				c.Version = 0
			},
			expected: "invalid configuration: invalid version 0",
		},
		{
			name: "zero width",
			mutate: func(c *Config) {
				c.Width = 0
			},
			expected: "invalid configuration: resolution must be positive, got 0x100",
		},
		{
			name: "too many partitions",
			mutate: func(c *Config) {
				c.Partitions = 6
			},
			expected: "invalid configuration: partitions must be between 1 and 5",
		},
		{
			name: "width not divisible",
			mutate: func(c *Config) {
				c.Width = 64
			},
			expected: "invalid configuration: width 64 is not divisible by 5 partitions",
		},
		{
			name: "zero output fps",
			mutate: func(c *Config) {
				c.OutputFPS = 0
			},
			expected: "invalid configuration: frame rates must be positive",
		},
		{
			name: "negative max frames",
			mutate: func(c *Config) {
				c.MaxFrames = -1
			},
			expected: "invalid configuration: max frames must not be negative",
		},
		{
			name: "zero workers",
			mutate: func(c *Config) {
				c.Workers = 0
			},
			expected: "invalid configuration: workers must be positive",
		},
		{
			name: "inverted hours",
			mutate: func(c *Config) {
				c.StartHour = 22
				c.EndHour = 8
			},
			expected: "invalid configuration: hour window 22-8 is not valid",
		},
		{
			name: "too many rows for the day",
			mutate: func(c *Config) {
				c.StartHour = 8
				c.EndHour = 9
				c.Height = 100
			},
			expected: "invalid configuration: height 100 exceeds the minutes in the hour window",
		},
		{
			name: "unknown codec",
			mutate: func(c *Config) {
				c.Codec = "lz4"
			},
			expected: `invalid configuration: unknown codec "lz4"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}

			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestConfigSaveLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "nested", DefaultConfigFileName)

	cfg := NewDefaultConfig()
	cfg.Width = 40
	cfg.Height = 30
	cfg.Workers = 4
	cfg.Codec = CodecSnappy

	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Width != 40 || loaded.Height != 30 {
		t.Errorf("expected 40x30, got %dx%d", loaded.Width, loaded.Height)
	}
	if loaded.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", loaded.Workers)
	}
	if loaded.Codec != CodecSnappy {
		t.Errorf("expected codec %q, got %q", CodecSnappy, loaded.Codec)
	}

	if _, err := Load(filepath.Join(tempDir, "missing.json")); err != ErrConfigNotFound {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, DefaultConfigFileName)

	if err := os.WriteFile(path, []byte(`{"width": 50, "height": 20}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Width != 50 || cfg.Height != 20 {
		t.Errorf("expected 50x20, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Partitions != 5 || cfg.Threshold != 128 || cfg.Codec != CodecZstd {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, DefaultConfigFileName)

	if err := os.WriteFile(path, []byte(`{"width": 12}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigUpdate(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.Update(func(c *Config) {
		c.Partitions = 4
		c.Width = 80
	})

	if cfg.Partitions != 4 {
		t.Errorf("expected 4 partitions, got %d", cfg.Partitions)
	}

	if cfg.SlabWidth() != 20 {
		t.Errorf("expected slab width 20, got %d", cfg.SlabWidth())
	}
}
