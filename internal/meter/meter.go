// Package meter reports ingestion throughput on a fixed wall-clock cadence.
package meter

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const reportInterval = 5 * time.Second

var (
	recognizedFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocrsuite_recognized_frames_per_second",
		Help: "Rate at which frames are actually OCR'd (excludes skipped frames)",
	})

	totalFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocrsuite_total_frames_per_second",
		Help: "Rate at which frame numbers advance, including skipped frames",
	})

	lastFrameNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocrsuite_last_frame_number",
		Help: "Highest frame number observed so far",
	})
)

// Progress is one periodic throughput report.
type Progress struct {
	RecognizedFramesPerSecond float64
	TotalFramesPerSecond      float64
	LastFrameNumber           int64
}

// Callback receives one Progress report per reportInterval elapsed.
type Callback func(Progress)

// Meter aggregates OCR and skip events and emits a Progress report no more
// often than once every 5 seconds of wall-clock time, resetting its
// processed-frame counter after each emission.
type Meter struct {
	mu sync.Mutex
	cb Callback

	lastReportTime    time.Time
	framesProcessed   int64
	lastFrameNum      int64
	lastPrintFrameNum int64

	now func() time.Time
}

// New builds a Meter starting from startingFrame (the resume point), so the
// first report's total-FPS figure reflects real progress instead of a spike
// from frame 0.
func New(startingFrame int64, cb Callback) *Meter {
	return &Meter{
		cb:                cb,
		lastReportTime:    time.Now(),
		lastPrintFrameNum: startingFrame,
		now:               time.Now,
	}
}

// RecordOCR records a frame that went through OCR.
func (m *Meter) RecordOCR(frameNumber int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if frameNumber > m.lastFrameNum {
		m.lastFrameNum = frameNumber
	}
	m.framesProcessed++
	m.checkProgress()
}

// RecordSkip records a frame that was decoded but skipped (already
// processed, or filtered out), advancing the total-FPS figure without
// counting toward recognized-FPS.
func (m *Meter) RecordSkip(frameNumber int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if frameNumber > m.lastFrameNum {
		m.lastFrameNum = frameNumber
	}
	m.checkProgress()
}

// checkProgress must be called with mu held.
func (m *Meter) checkProgress() {
	now := m.now()
	elapsed := now.Sub(m.lastReportTime)
	if elapsed < reportInterval {
		return
	}

	elapsedMS := float64(elapsed.Milliseconds())
	framesSeeked := m.lastFrameNum - m.lastPrintFrameNum

	report := Progress{
		RecognizedFramesPerSecond: float64(m.framesProcessed) / elapsedMS * 1000.0,
		TotalFramesPerSecond:      float64(framesSeeked) / elapsedMS * 1000.0,
		LastFrameNumber:           m.lastFrameNum,
	}

	recognizedFPS.Set(report.RecognizedFramesPerSecond)
	totalFPS.Set(report.TotalFramesPerSecond)
	lastFrameNumber.Set(float64(report.LastFrameNumber))

	if m.cb != nil {
		m.cb(report)
	}

	m.lastPrintFrameNum = m.lastFrameNum
	m.lastReportTime = now
	m.framesProcessed = 0
}
