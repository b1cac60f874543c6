// Command ocrsuited runs ocrsuite as a long-lived OS service: it watches a
// directory for finished video files and OCRs each one as it arrives,
// supplementing the original engine's single-shot CLI with the kind of
// unattended ingestion a deployed camera feed needs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kardianos/service"

	"github.com/yowidin/ocrsuite/internal/config"
	"github.com/yowidin/ocrsuite/internal/pipeline"
	"github.com/yowidin/ocrsuite/internal/servicelog"
	"github.com/yowidin/ocrsuite/internal/watch"
)

var configPath = flag.String("config", "ocrsuite.yaml", "path to the YAML configuration file")

type program struct {
	cfg    *config.Config
	logger servicelog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	<-p.done
	return nil
}

func (p *program) run(ctx context.Context) {
	defer close(p.done)

	history, err := watch.LoadHistory(p.cfg.HistoryFile)
	if err != nil {
		p.logger.Fatal("loading watch history", servicelog.Error(err), servicelog.String("path", p.cfg.HistoryFile))
		return
	}

	settle := time.Duration(p.cfg.SettleSeconds) * time.Second
	w := watch.New(p.logger, history, p.cfg.WatchDirectory, settle, func(videoPath string) error {
		return p.processVideo(ctx, videoPath)
	})

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("watcher stopped", servicelog.Error(err))
	}
}

// processVideo runs one OCR pass per video, using a sibling database file so
// every ingested video keeps its own independent resume point.
func (p *program) processVideo(ctx context.Context, videoPath string) error {
	runCfg := *p.cfg
	runCfg.VideoFile = videoPath
	runCfg.DatabaseFile = videoPath + ".ocrsuite.db"

	logger := p.logger.With(servicelog.String("video", videoPath))
	logger.Info("starting OCR run")

	start := time.Now()
	err := pipeline.Run(ctx, pipeline.Options{
		VideoFile: videoPath,
		Cfg:       &runCfg,
		Logger:    logger,
		OnProgress: func(progress pipeline.Progress) {
			logger.Debug("progress", servicelog.Int64("frame", progress.LastFrameNumber))
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("OCR run failed", servicelog.Error(err), servicelog.Duration("elapsed", elapsed))
		return err
	}
	logger.Info("OCR run complete", servicelog.Duration("elapsed", elapsed))
	return nil
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrsuited: loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.WatchDirectory == "" {
		fmt.Fprintln(os.Stderr, "ocrsuited: watchDirectory must be set")
		os.Exit(1)
	}

	svcConfig := &service.Config{
		Name:        "ocrsuited",
		DisplayName: "OCR Suite Ingestion Service",
		Description: "Watches a directory for finished video files and OCRs each one into an embedded store.",
		Arguments:   []string{"-config", absConfigPath(*configPath)},
	}

	prog := &program{cfg: cfg}

	svc, err := service.New(prog, svcConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrsuited: initializing service: %v\n", err)
		os.Exit(1)
	}

	serviceLogger, err := svc.Logger(nil)
	if err != nil {
		// Not running under a recognized service manager (e.g. plain
		// foreground execution); fall back to no service-host forwarding.
		serviceLogger = nil
	}
	prog.logger = servicelog.New(serviceLogger, cfg.Debug, cfg.LogFolder)

	if len(flag.Args()) > 0 {
		if err := service.Control(svc, flag.Args()[0]); err != nil {
			log.Fatalf("ocrsuited: %v", err)
		}
		return
	}

	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ocrsuited: %v\n", err)
		os.Exit(1)
	}
}

func absConfigPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
