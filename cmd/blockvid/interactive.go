package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/davecgh/go-spew/spew"

	"github.com/KevoDB/blockvid/pkg/block"
	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".load"),
	readline.PcItem(".set",
		readline.PcItem("res"),
		readline.PcItem("fps"),
		readline.PcItem("src-fps"),
		readline.PcItem("max-frames"),
		readline.PcItem("partitions"),
		readline.PcItem("workers"),
		readline.PcItem("threshold"),
		readline.PcItem("codec"),
		readline.PcItem("seed"),
	),
	readline.PcItem(".compress"),
	readline.PcItem(".stats"),
	readline.PcItem(".frame"),
	readline.PcItem(".dump"),
	readline.PcItem(".export"),
	readline.PcItem(".exit"),
)

const helpText = `
blockvid - Compress black and white videos into timetable lessons.

Commands:
  .help                   - Show this help message
  .open [DIR|GIF]         - Sample frames; without a path, asks for the settings
  .load FILE.bvc          - Load the frames stored in a block container
  .set KEY VALUE          - Change a setting (res, fps, src-fps, max-frames,
                            partitions, workers, threshold, codec, seed)
  .compress               - Compress the loaded frames
  .stats                  - Show pipeline statistics
  .frame N                - Print frame N of the compressed video
  .dump P                 - Dump the blocks of partition P
  .export PATH            - Write lessons (.json) or a block container (.bvc)
  .exit                   - Exit the program
`

var errQuit = errors.New("quit")

// shell holds the state of an interactive session
type shell struct {
	cfg      *config.Config
	pipeline *pipeline
	out      io.Writer

	// ask reads the answer to a prompt
	ask func(prompt string) (string, error)

	frames [][][]bool
	seq    *block.Sequence
}

func newShell(cfg *config.Config, out io.Writer, ask func(string) (string, error)) (*shell, error) {
	logger := log.GetDefaultLogger().WithField("mode", "interactive")
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &shell{cfg: cfg, pipeline: p, out: out, ask: ask}, nil
}

func (s *shell) Close() error {
	return s.pipeline.Close()
}

func (s *shell) prompt() string {
	switch {
	case s.seq != nil:
		return fmt.Sprintf("blockvid[%d blocks]> ", s.seq.BlockCount())
	case s.frames != nil:
		return fmt.Sprintf("blockvid[%d frames]> ", len(s.frames))
	default:
		return "blockvid> "
	}
}

// exec runs one command line. It returns errQuit on .exit.
func (s *shell) exec(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case ".help":
		fmt.Fprint(s.out, helpText)
		return nil
	case ".exit":
		fmt.Fprintln(s.out, "Goodbye!")
		return errQuit
	case ".open":
		return s.open(ctx, args)
	case ".load":
		if len(args) != 1 {
			return fmt.Errorf("usage: .load FILE%s", ".bvc")
		}
		frames, err := s.pipeline.load(args[0])
		if err != nil {
			return err
		}
		s.frames, s.seq = frames, nil
		fmt.Fprintf(s.out, "Loaded %d frames from %s\n", len(frames), args[0])
		return nil
	case ".set":
		if len(args) != 2 {
			return fmt.Errorf("usage: .set KEY VALUE")
		}
		if err := applySetting(s.cfg, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s = %s\n", args[0], args[1])
		return nil
	case ".compress":
		return s.compress(ctx)
	case ".stats":
		s.printStats()
		return nil
	case ".frame":
		return s.printFrame(args)
	case ".dump":
		return s.dump(args)
	case ".export":
		if len(args) != 1 {
			return fmt.Errorf("usage: .export PATH")
		}
		if s.seq == nil {
			return fmt.Errorf("nothing compressed yet, run .compress")
		}
		n, err := s.pipeline.export(s.seq, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Wrote %d bytes to %s\n", n, args[0])
		return nil
	default:
		return fmt.Errorf("unknown command %q, enter .help for usage hints", parts[0])
	}
}

func (s *shell) open(ctx context.Context, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		var err error
		if path, err = s.ask("Path: "); err != nil {
			return err
		}
		for _, q := range []struct{ prompt, key string }{
			{"Resolution: ", "res"},
			{"FPS: ", "fps"},
			{"Max frame count: ", "max-frames"},
		} {
			answer, err := s.ask(q.prompt)
			if err != nil {
				return err
			}
			if err := applySetting(s.cfg, q.key, strings.TrimSpace(answer)); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(s.out, "Reading video into boolean arrays...")
	frames, err := s.pipeline.sample(ctx, strings.TrimSpace(path))
	if err != nil {
		return err
	}
	s.frames, s.seq = frames, nil
	fmt.Fprintf(s.out, "Sampled %d frames\n", len(frames))
	return nil
}

func (s *shell) compress(ctx context.Context) error {
	if s.frames == nil {
		return fmt.Errorf("no frames loaded, run .open first")
	}

	fmt.Fprintln(s.out, "Compressing video...")
	seq, err := s.pipeline.compress(ctx, s.frames)
	if err != nil {
		return err
	}
	s.seq = seq
	fmt.Fprintln(s.out, summary(seq.Pixels(), seq.BlockCount()))
	return nil
}

func (s *shell) printFrame(args []string) error {
	if s.seq == nil {
		return fmt.Errorf("nothing compressed yet, run .compress")
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: .frame N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= s.seq.FrameCount {
		return fmt.Errorf("frame must be between 0 and %d", s.seq.FrameCount-1)
	}

	for _, row := range s.seq.Frames()[n] {
		var sb strings.Builder
		for _, on := range row {
			if on {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		fmt.Fprintln(s.out, sb.String())
	}
	return nil
}

func (s *shell) dump(args []string) error {
	if s.seq == nil {
		return fmt.Errorf("nothing compressed yet, run .compress")
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: .dump P")
	}
	p, err := strconv.Atoi(args[0])
	if err != nil || p < 0 || p >= len(s.seq.Partitions) {
		return fmt.Errorf("partition must be between 0 and %d", len(s.seq.Partitions)-1)
	}

	cs := spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true, DisableCapacities: true}
	cs.Fdump(s.out, s.seq.Partitions[p].Grid.Distinct())
	return nil
}

func (s *shell) printStats() {
	stats := s.pipeline.stats.GetStats()

	getUint64 := func(m map[string]interface{}, key string) uint64 {
		if v, ok := m[key].(uint64); ok {
			return v
		}
		return 0
	}

	fmt.Fprintln(s.out, "📊 Operations:")
	var ops []string
	for key := range stats {
		if strings.HasSuffix(key, "_ops") {
			ops = append(ops, key)
		}
	}
	sort.Strings(ops)
	for _, key := range ops {
		fmt.Fprintf(s.out, "  • %s: %d\n", strings.TrimSuffix(key, "_ops"), getUint64(stats, key))
	}

	fmt.Fprintln(s.out, "\n🧱 Compression:")
	fmt.Fprintf(s.out, "  • Cells In: %d\n", getUint64(stats, "cells_in"))
	fmt.Fprintf(s.out, "  • Blocks Out: %d\n", getUint64(stats, "blocks_out"))
	if ratio, ok := stats["compression_ratio"].(float64); ok {
		fmt.Fprintf(s.out, "  • Ratio: %.2f\n", ratio)
	}

	if run, ok := stats["run"].(map[string]interface{}); ok {
		fmt.Fprintln(s.out, "\n⏱️ Runs:")
		fmt.Fprintf(s.out, "  • Count: %d\n", getUint64(run, "runs"))
		if ms, ok := run["last_duration_ms"].(int64); ok {
			fmt.Fprintf(s.out, "  • Last Duration: %d ms\n", ms)
		}
	}

	fmt.Fprintln(s.out, "\n💾 IO:")
	fmt.Fprintf(s.out, "  • Total Bytes Read: %d\n", getUint64(stats, "total_bytes_read"))
	fmt.Fprintf(s.out, "  • Total Bytes Written: %d\n", getUint64(stats, "total_bytes_written"))

	if errs, ok := stats["errors"].(map[string]uint64); ok && len(errs) > 0 {
		fmt.Fprintln(s.out, "\n⚠️ Errors:")
		for kind, n := range errs {
			fmt.Fprintf(s.out, "  • %s: %d\n", kind, n)
		}
	}
}

// applySetting changes one setting of cfg and keeps the old values when the
// result does not validate
func applySetting(cfg *config.Config, key, value string) error {
	var apply func(c *config.Config)

	switch key {
	case "res":
		w, h, err := parseResolution(value)
		if err != nil {
			return err
		}
		apply = func(c *config.Config) { c.Width, c.Height = w, h }
	case "fps", "max-frames", "partitions", "workers", "threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		apply = map[string]func(c *config.Config){
			"fps":        func(c *config.Config) { c.OutputFPS = n },
			"max-frames": func(c *config.Config) { c.MaxFrames = n },
			"partitions": func(c *config.Config) { c.Partitions = n },
			"workers":    func(c *config.Config) { c.Workers = n },
			"threshold":  func(c *config.Config) { c.Threshold = uint8(min(max(n, 0), 255)) },
		}[key]
	case "src-fps":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("src-fps must be a number")
		}
		apply = func(c *config.Config) { c.SourceFPS = f }
	case "codec":
		apply = func(c *config.Config) { c.Codec = value }
	case "seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be an integer")
		}
		apply = func(c *config.Config) { c.Seed = n }
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	snapshot, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	cfg.Update(apply)
	if err := cfg.Validate(); err != nil {
		cfg.Update(func(c *config.Config) { json.Unmarshal(snapshot, c) })
		return err
	}
	return nil
}

// runInteractive starts the interactive CLI mode
func runInteractive(cfg *config.Config) error {
	fmt.Println("blockvid - block video compressor")
	fmt.Println("Enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".blockvid_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "blockvid> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	ask := func(prompt string) (string, error) {
		defer rl.SetPrompt("blockvid> ")
		rl.SetPrompt(prompt)
		return rl.Readline()
	}

	sh, err := newShell(cfg, rl.Stdout(), ask)
	if err != nil {
		return err
	}
	defer sh.Close()

	ctx := context.Background()
	for {
		rl.SetPrompt(sh.prompt())

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if readErr == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}

		start := time.Now()
		if err := sh.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			continue
		}
		if d := time.Since(start); d > time.Second {
			fmt.Fprintf(rl.Stdout(), "(%s)\n", d.Round(time.Millisecond))
		}
	}
}
