package ocrworker

import (
	"strings"
	"sync"

	"github.com/yowidin/ocrsuite/internal/framequeue"
	"github.com/yowidin/ocrsuite/internal/servicelog"
)

// minLettersThreshold drops recognized text shorter than this, matching the
// original engine's noise filter on single stray characters.
const minLettersThreshold = 3

// Farm is a fixed pool of OCR workers, each owning its own Provider
// instance, pulling buffers from a shared framequeue.Queue until it reports
// shutdown.
type Farm struct {
	queue  *framequeue.Queue
	group  sync.WaitGroup
	logger servicelog.Logger
}

// NewFarm starts n workers, each built via factory, recognizing frames from
// queue. Frames for which filter returns true are returned to the queue
// unread. onResult is invoked once per non-skipped frame whose OCR call
// succeeded, including frames with zero recognized entries (a frame whose
// DoOCR returns an error is logged and recycled without a Result), from
// whichever worker goroutine processed
// it — callers that are not inherently safe for concurrent use (e.g. a
// *store.Store) must serialize internally, which store.Store already does.
func NewFarm(logger servicelog.Logger, queue *framequeue.Queue, n int, factory ProviderFactory, filter FilterFunc, onResult ResultFunc) (*Farm, error) {
	farm := &Farm{queue: queue, logger: logger}

	providers := make([]Provider, 0, n)
	for i := 0; i < n; i++ {
		p, err := factory()
		if err != nil {
			for _, existing := range providers {
				existing.Close()
			}
			return nil, err
		}
		providers = append(providers, p)
	}

	for _, p := range providers {
		farm.group.Add(1)
		go farm.run(p, filter, onResult)
	}
	return farm, nil
}

// Wait blocks until every worker has observed queue shutdown and exited.
func (f *Farm) Wait() {
	f.group.Wait()
}

func (f *Farm) run(provider Provider, filter FilterFunc, onResult ResultFunc) {
	defer f.group.Done()
	defer provider.Close()

	lowerThreadPriority()

	for {
		buf := f.queue.TakeConsumer()
		if buf == nil {
			return
		}

		if filter != nil && filter(buf.FrameNumber) {
			f.queue.ReturnProducer(buf)
			continue
		}

		entries, err := provider.DoOCR(buf.Pixels, buf.Width, buf.Height, buf.BytesPerLine)
		if err != nil {
			f.logger.Error("OCR failed", servicelog.Int64("frame", buf.FrameNumber), servicelog.Error(err))
			f.queue.ReturnProducer(buf)
			continue
		}

		frameNumber := buf.FrameNumber
		f.queue.ReturnProducer(buf)

		onResult(Result{FrameNumber: frameNumber, Entries: filterEntries(entries)})
	}
}

func filterEntries(entries []TextEntry) []TextEntry {
	var out []TextEntry
	for _, e := range entries {
		trimmed := strings.TrimSpace(e.Text)
		if len(trimmed) < minLettersThreshold {
			continue
		}
		e.Text = trimmed
		out = append(out, e)
	}
	return out
}
