package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/grpc/transport"
)

// Options holds the command line settings
type Options struct {
	ConfigPath string
	LogLevel   string

	// Batch mode
	FramesPath string
	OutPath    string
	Remote     string

	// Overrides of the config file, zero keeps the file's value
	SourceFPS  float64
	FPS        int
	Resolution string
	MaxFrames  int
	Partitions int
	Workers    int
	Codec      string

	// Server mode
	ServerMode bool
	ListenAddr string
	TLS        transport.TLSConfig
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	log.SetDefaultLogger(log.NewStandardLogger(log.WithLevel(level), log.WithOutput(os.Stderr)))

	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	switch {
	case opts.ServerMode:
		return runServer(cfg, opts)
	case opts.FramesPath != "":
		return runBatch(context.Background(), cfg, opts, os.Stdout)
	default:
		return runInteractive(cfg)
	}
}

// parseFlags parses command line flags and returns the Options
func parseFlags(args []string, output io.Writer) (Options, error) {
	fs := flag.NewFlagSet("blockvid", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "blockvid - Compress black and white videos into timetable lessons\n\n")
		fmt.Fprintf(fs.Output(), "Usage: blockvid [options]\n\n")
		fmt.Fprintf(fs.Output(), "With -frames, blockvid compresses the frames and writes -out.\n")
		fmt.Fprintf(fs.Output(), "With -server, blockvid exposes the compressor over gRPC.\n")
		fmt.Fprintf(fs.Output(), "Otherwise it starts an interactive shell.\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
	}

	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Configuration file (JSON)")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	fs.StringVar(&opts.FramesPath, "frames", "", "Directory of frame images or a GIF to compress")
	fs.StringVar(&opts.OutPath, "out", "lessons.json", "Output file: .json for lessons, .bvc for a block container")
	fs.StringVar(&opts.Remote, "remote", "", "Compress on the blockvid server at this address")

	fs.Float64Var(&opts.SourceFPS, "src-fps", 0, "Frame rate of the input frames")
	fs.IntVar(&opts.FPS, "fps", 0, "Frame rate of the output")
	fs.StringVar(&opts.Resolution, "res", "", "Output resolution, N or WxH")
	fs.IntVar(&opts.MaxFrames, "max-frames", -1, "Maximum number of output frames, 0 for all")
	fs.IntVar(&opts.Partitions, "partitions", 0, "Number of column partitions (1-5)")
	fs.IntVar(&opts.Workers, "workers", 0, "Number of partitions compressed in parallel")
	fs.StringVar(&opts.Codec, "codec", "", "Container codec: none, zstd, snappy")

	fs.BoolVar(&opts.ServerMode, "server", false, "Run in server mode, exposing a gRPC API")
	fs.StringVar(&opts.ListenAddr, "address", "localhost:50051", "Address to listen on in server mode")
	fs.StringVar(&opts.TLS.CertFile, "tls-cert", "", "TLS certificate file path")
	fs.StringVar(&opts.TLS.KeyFile, "tls-key", "", "TLS private key file path")
	fs.StringVar(&opts.TLS.CAFile, "tls-ca", "", "TLS CA certificate file")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		fmt.Fprintln(fs.Output(), err)
		return Options{}, err
	}
	return opts, nil
}

// buildConfig loads the config file, if any, and applies the flag overrides
func buildConfig(opts Options) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", opts.ConfigPath, err)
		}
		cfg = loaded
	}

	var resErr error
	cfg.Update(func(c *config.Config) {
		if opts.Resolution != "" {
			c.Width, c.Height, resErr = parseResolution(opts.Resolution)
		}
		if opts.SourceFPS > 0 {
			c.SourceFPS = opts.SourceFPS
		}
		if opts.FPS > 0 {
			c.OutputFPS = opts.FPS
		}
		if opts.MaxFrames >= 0 {
			c.MaxFrames = opts.MaxFrames
		}
		if opts.Partitions > 0 {
			c.Partitions = opts.Partitions
		}
		if opts.Workers > 0 {
			c.Workers = opts.Workers
		}
		if opts.Codec != "" {
			c.Codec = opts.Codec
		}
	})
	if resErr != nil {
		return nil, resErr
	}

	cfg.Telemetry.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseResolution accepts "N" for a square or "WxH"
func parseResolution(s string) (int, int, error) {
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		h = w
	}

	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	return width, height, nil
}
