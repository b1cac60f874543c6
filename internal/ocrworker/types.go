// Package ocrworker runs a fixed pool of OCR workers that pull filled frame
// buffers off a framequeue.Queue, recognize text in them, and hand the
// result to a callback.
package ocrworker

// TextEntry is one recognized text region within a single frame.
type TextEntry struct {
	Left, Top, Right, Bottom int32
	Confidence               float32
	Text                     string
}

// Result is everything recognized in a single frame, including frames with
// no text at all (Entries is nil): the frame number alone still needs to
// reach the store so it can advance its progress pointer.
type Result struct {
	FrameNumber int64
	Entries     []TextEntry
}

// ResultFunc receives one Result per processed frame.
type ResultFunc func(Result)

// FilterFunc decides whether a frame should be skipped before OCR runs on
// it, e.g. because the store already has a result for it. Returning true
// skips the frame.
type FilterFunc func(frameNumber int64) bool

// Provider performs OCR on a single decoded frame. Implementations own
// whatever per-worker state the underlying engine needs (e.g. a tesseract
// client) and must be safe to use from exactly one goroutine at a time.
type Provider interface {
	DoOCR(pixels []byte, width, height, bytesPerLine int) ([]TextEntry, error)
	Close()
}

// ProviderFactory builds one Provider per worker goroutine, mirroring the
// original engine's one-tesseract-instance-per-thread requirement.
type ProviderFactory func() (Provider, error)
