package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"

	"github.com/KevoDB/blockvid/pkg/common/log"
	"github.com/KevoDB/blockvid/pkg/config"
	"github.com/KevoDB/blockvid/pkg/grpc/service"
	"github.com/KevoDB/blockvid/pkg/grpc/transport"
)

// runBatch compresses opts.FramesPath into opts.OutPath
func runBatch(ctx context.Context, cfg *config.Config, opts Options, out io.Writer) error {
	logger := log.GetDefaultLogger().WithField("mode", "batch")
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintln(out, "Reading video into boolean arrays...")
	frames, err := p.sample(ctx, opts.FramesPath)
	if err != nil {
		return err
	}

	if opts.Remote != "" {
		return compressRemote(ctx, frames, cfg, opts, out)
	}

	fmt.Fprintln(out, "Compressing video...")
	seq, err := p.compress(ctx, frames)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Writing to file...")
	if _, err := p.export(seq, opts.OutPath); err != nil {
		return err
	}

	fmt.Fprintln(out, "done")
	fmt.Fprintln(out, summary(seq.Pixels(), seq.BlockCount()))
	return nil
}

// compressRemote sends frames to a blockvid server and writes the lessons
// it returns
func compressRemote(ctx context.Context, frames [][][]bool, cfg *config.Config, opts Options, out io.Writer) error {
	creds, err := transport.DialCredentials(opts.TLS)
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(opts.Remote, creds,
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMessageSize), grpc.MaxCallSendMsgSize(maxMessageSize)))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Remote, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Fprintf(out, "Compressing video on %s...\n", opts.Remote)
	resp, err := service.NewCompressorClient(conn).Compress(ctx, &service.CompressRequest{
		Frames:     frames,
		FPS:        cfg.OutputFPS,
		Partitions: cfg.Partitions,
	})
	if err != nil {
		return fmt.Errorf("remote compression failed: %w", err)
	}

	fmt.Fprintln(out, "Writing to file...")
	if _, err := writeLessons(opts.OutPath, resp.Video); err != nil {
		return err
	}

	fmt.Fprintln(out, "done")
	fmt.Fprintln(out, summary(resp.Pixels, resp.Blocks))
	return nil
}
