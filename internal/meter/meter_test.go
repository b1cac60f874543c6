package meter

import (
	"testing"
	"time"
)

func TestMeterDoesNotReportBeforeInterval(t *testing.T) {
	var reports []Progress
	m := New(0, func(p Progress) { reports = append(reports, p) })

	fakeNow := m.lastReportTime
	m.now = func() time.Time { return fakeNow }

	m.RecordOCR(1)
	m.RecordOCR(2)
	if len(reports) != 0 {
		t.Fatalf("expected no report before the interval elapses, got %d", len(reports))
	}
}

func TestMeterReportsAfterIntervalAndResets(t *testing.T) {
	var reports []Progress
	m := New(100, func(p Progress) { reports = append(reports, p) })

	start := m.lastReportTime
	fakeNow := start
	m.now = func() time.Time { return fakeNow }

	m.RecordOCR(150)
	m.RecordOCR(160)

	fakeNow = start.Add(10 * time.Second)
	m.RecordOCR(200)

	if len(reports) != 1 {
		t.Fatalf("expected exactly 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.LastFrameNumber != 200 {
		t.Fatalf("LastFrameNumber = %d, want 200", r.LastFrameNumber)
	}
	// 3 processed frames over 10s => 0.3 fps recognized.
	if r.RecognizedFramesPerSecond <= 0 {
		t.Fatalf("RecognizedFramesPerSecond = %v, want > 0", r.RecognizedFramesPerSecond)
	}
	// total advance is 200-100=100 frames over 10s => 10 fps.
	if r.TotalFramesPerSecond <= 0 {
		t.Fatalf("TotalFramesPerSecond = %v, want > 0", r.TotalFramesPerSecond)
	}

	if m.framesProcessed != 0 {
		t.Fatalf("framesProcessed = %d, want reset to 0 after report", m.framesProcessed)
	}
	if m.lastPrintFrameNum != 200 {
		t.Fatalf("lastPrintFrameNum = %d, want 200", m.lastPrintFrameNum)
	}
}

func TestMeterRecordSkipAdvancesWithoutCountingProcessed(t *testing.T) {
	var reports []Progress
	m := New(0, func(p Progress) { reports = append(reports, p) })

	start := m.lastReportTime
	fakeNow := start
	m.now = func() time.Time { return fakeNow }

	m.RecordSkip(5)
	fakeNow = start.Add(6 * time.Second)
	m.RecordSkip(50)

	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].RecognizedFramesPerSecond != 0 {
		t.Fatalf("RecognizedFramesPerSecond = %v, want 0 (only skips recorded)", reports[0].RecognizedFramesPerSecond)
	}
}
