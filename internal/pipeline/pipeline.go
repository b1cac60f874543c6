// Package pipeline wires the decoder, the frame queue, the OCR worker pool,
// the result store, and progress metering into the single run the original
// engine's recognition/main.cpp performs: decode a video once, OCR every
// frame that survives the configured filter, and persist every recognized
// word.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yowidin/ocrsuite/internal/config"
	"github.com/yowidin/ocrsuite/internal/decode"
	"github.com/yowidin/ocrsuite/internal/framequeue"
	"github.com/yowidin/ocrsuite/internal/meter"
	"github.com/yowidin/ocrsuite/internal/ocrworker"
	"github.com/yowidin/ocrsuite/internal/servicelog"
	"github.com/yowidin/ocrsuite/internal/store"
)

// Progress is re-exported so callers only need to import this package.
type Progress = meter.Progress

// Options configures a single Run.
type Options struct {
	VideoFile string
	Cfg       *config.Config
	Logger    servicelog.Logger

	// OnProgress, if set, is invoked roughly every five seconds with the
	// current throughput and resume position, the same cadence the original
	// engine's speed_meter uses to drive its CLI spinner.
	OnProgress func(Progress)

	// ProviderFactory overrides the OCR engine; defaults to
	// ocrworker.NewTesseractProvider(Cfg.Language, Cfg.TessDataPath).
	ProviderFactory ocrworker.ProviderFactory
}

// Run decodes VideoFile, OCRs every frame that survives the configured frame
// filter and hasn't already been stored, and persists every recognized word
// to Cfg.DatabaseFile. It blocks until the decoder reaches the end of the
// file, ctx is cancelled, or a worker/decoder error forces an early stop —
// mirroring the original main()'s shutdown-on-first-error behavior.
func Run(ctx context.Context, opts Options) error {
	db, err := store.Open(opts.Cfg.DatabaseFile, false)
	if err != nil {
		return fmt.Errorf("pipeline: opening store: %w", err)
	}
	defer db.Close()

	startingFrame, err := db.StartingFrame()
	if err != nil {
		return fmt.Errorf("pipeline: reading starting frame: %w", err)
	}

	dec, err := decode.Open(opts.VideoFile, opts.Cfg.FrameFilter, startingFrame)
	if err != nil {
		return fmt.Errorf("pipeline: opening %s: %w", opts.VideoFile, err)
	}
	defer dec.Close()

	factory := opts.ProviderFactory
	if factory == nil {
		factory = ocrworker.NewTesseractProvider(opts.Cfg.Language, opts.Cfg.TessDataPath)
	}

	queueDepth := opts.Cfg.QueueDepth
	if queueDepth < 1 {
		queueDepth = 2 * opts.Cfg.OCRThreads
	}
	queue := framequeue.New(queueDepth, 0, 0)

	bitmapSink, err := newBitmapSink(opts.Cfg.SaveBitmaps, opts.Cfg.BitmapDirectory)
	if err != nil {
		return err
	}

	m := meter.New(startingFrame, opts.OnProgress)

	filterFunc := func(frameNumber int64) bool {
		processed, err := db.IsFrameProcessed(frameNumber)
		if err != nil {
			opts.Logger.Warn("checking processed frame", servicelog.Error(err), servicelog.Int64("frame", frameNumber))
			return false
		}
		if processed {
			m.RecordSkip(frameNumber)
		}
		return processed
	}

	var (
		storeErrMu sync.Mutex
		storeErr   error
	)
	onResult := func(result ocrworker.Result) {
		m.RecordOCR(result.FrameNumber)
		if err := db.Store(result); err != nil {
			opts.Logger.Error("storing OCR result", servicelog.Error(err), servicelog.Int64("frame", result.FrameNumber))
			storeErrMu.Lock()
			if storeErr == nil {
				storeErr = err
			}
			storeErrMu.Unlock()
			queue.Shutdown()
		}
	}

	farm, err := ocrworker.NewFarm(opts.Logger, queue, opts.Cfg.OCRThreads, factory, filterFunc, onResult)
	if err != nil {
		return fmt.Errorf("pipeline: starting OCR workers: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runDecoder(groupCtx, dec, queue, bitmapSink, opts.Logger)
	})

	waitErr := group.Wait()
	queue.Shutdown()
	farm.Wait()

	if waitErr != nil {
		return fmt.Errorf("pipeline: %w", waitErr)
	}
	if storeErr != nil {
		return fmt.Errorf("pipeline: %w", storeErr)
	}
	return nil
}

// runDecoder feeds queue from dec until the video ends, ctx is cancelled, or
// the decoder reports an error. It always calls queue.Shutdown on the way
// out so OCR workers blocked in TakeConsumer are released. When sink is
// non-nil, every decoded frame is also copied out to it before being handed
// to the worker pool.
func runDecoder(ctx context.Context, dec *decode.Decoder, queue *framequeue.Queue, sink func(decode.Frame) error, logger servicelog.Logger) error {
	defer queue.Shutdown()

	return dec.Run(ctx, func(f decode.Frame) decode.Action {
		if sink != nil {
			if err := sink(f); err != nil {
				logger.Warn("writing debug bitmap", servicelog.Error(err), servicelog.Int64("frame", f.FrameNumber))
			}
		}

		buf := queue.TakeProducer()
		if buf == nil {
			return decode.ActionStop
		}

		buf.FrameNumber = f.FrameNumber
		buf.Pixels = append(buf.Pixels[:0], f.Pixels...)
		buf.Width = f.Width
		buf.Height = f.Height
		buf.BytesPerLine = f.BytesPerLine
		queue.ReturnConsumer(buf)

		select {
		case <-ctx.Done():
			return decode.ActionStop
		default:
			return decode.ActionContinue
		}
	})
}
