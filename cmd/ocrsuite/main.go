// Command ocrsuite runs a single OCR pass over one video file and exits,
// the Go counterpart of the original engine's recognition binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yowidin/ocrsuite/internal/config"
	"github.com/yowidin/ocrsuite/internal/decode"
	"github.com/yowidin/ocrsuite/internal/pipeline"
	"github.com/yowidin/ocrsuite/internal/servicelog"
)

func main() {
	configPath := flag.String("config", "ocrsuite.yaml", "path to the YAML configuration file")
	frameFilter := flag.String("frameFilter", "", "override the config's frameFilter (i, p, b, i_and_p, all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrsuite: loading config: %v\n", err)
		os.Exit(1)
	}

	if *frameFilter != "" {
		parsed, err := decode.ParseFrameFilter(*frameFilter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ocrsuite: %v\n", err)
			os.Exit(1)
		}
		cfg.FrameFilter = parsed
	}

	logger := servicelog.New(nil, cfg.Debug, cfg.LogFolder)

	videoFile := cfg.VideoFile
	if videoFile == "" {
		fmt.Fprintln(os.Stderr, "ocrsuite: videoFile must be set for one-shot runs; use ocrsuited for watchDirectory mode")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onProgress := func(p pipeline.Progress) {
		logger.Info("progress",
			servicelog.Int64("frame", p.LastFrameNumber),
			servicelog.Any("ocrFramesPerSecond", p.RecognizedFramesPerSecond),
			servicelog.Any("seekFramesPerSecond", p.TotalFramesPerSecond),
		)
	}

	start := time.Now()
	err = pipeline.Run(ctx, pipeline.Options{
		VideoFile:  videoFile,
		Cfg:        cfg,
		Logger:     logger,
		OnProgress: onProgress,
	})
	elapsed := time.Since(start)

	if err != nil {
		logger.Error("run failed", servicelog.Error(err), servicelog.Duration("elapsed", elapsed))
		fmt.Fprintf(os.Stderr, "ocrsuite: %v\n", err)
		os.Exit(1)
	}

	logger.Info("run complete", servicelog.Duration("elapsed", elapsed))
}
