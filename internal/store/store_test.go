package store

import (
	"path/filepath"
	"testing"

	"github.com/yowidin/ocrsuite/internal/ocrworker"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "results.db"), false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesCurrentSchema(t *testing.T) {
	s := openTemp(t)
	version, err := s.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != CurrentVersion {
		t.Fatalf("version = %d, want %d", version, CurrentVersion)
	}
}

func TestStartingFrameDefaultsToOne(t *testing.T) {
	s := openTemp(t)
	frame, err := s.StartingFrame()
	if err != nil {
		t.Fatalf("StartingFrame: %v", err)
	}
	if frame != 1 {
		t.Fatalf("StartingFrame = %d, want 1", frame)
	}
}

func TestStoreAndIsFrameProcessed(t *testing.T) {
	s := openTemp(t)

	result := ocrworker.Result{
		FrameNumber: 42,
		Entries: []ocrworker.TextEntry{
			{Text: "hello", Left: 1, Top: 2, Right: 3, Bottom: 4, Confidence: 0.9},
		},
	}
	if err := s.Store(result); err != nil {
		t.Fatalf("Store: %v", err)
	}

	processed, err := s.IsFrameProcessed(42)
	if err != nil {
		t.Fatalf("IsFrameProcessed: %v", err)
	}
	if !processed {
		t.Fatal("expected frame 42 to be processed")
	}

	processed, err = s.IsFrameProcessed(43)
	if err != nil {
		t.Fatalf("IsFrameProcessed: %v", err)
	}
	if processed {
		t.Fatal("expected frame 43 to be unprocessed")
	}

	frame, err := s.StartingFrame()
	if err != nil {
		t.Fatalf("StartingFrame: %v", err)
	}
	if frame != 43 {
		t.Fatalf("StartingFrame = %d, want 43", frame)
	}
}

func TestStoreDeduplicatesTextAcrossFrames(t *testing.T) {
	s := openTemp(t)

	for _, frame := range []int64{1, 2} {
		result := ocrworker.Result{
			FrameNumber: frame,
			Entries:     []ocrworker.TextEntry{{Text: "ARRIVALS", Left: 0, Top: 0, Right: 10, Bottom: 10}},
		}
		if err := s.Store(result); err != nil {
			t.Fatalf("Store frame %d: %v", frame, err)
		}
	}

	var entryCount int64
	if err := s.db.Model(&TextEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count text_entries: %v", err)
	}
	if entryCount != 1 {
		t.Fatalf("text_entries count = %d, want 1 (deduplicated)", entryCount)
	}

	var instanceCount int64
	if err := s.db.Model(&TextInstance{}).Count(&instanceCount).Error; err != nil {
		t.Fatalf("count text_instances: %v", err)
	}
	if instanceCount != 2 {
		t.Fatalf("text_instances count = %d, want 2", instanceCount)
	}
}

func TestAdvanceProgressIsHighestSeen(t *testing.T) {
	s := openTemp(t)

	if err := s.AdvanceProgress(10); err != nil {
		t.Fatalf("AdvanceProgress(10): %v", err)
	}
	if err := s.AdvanceProgress(5); err != nil {
		t.Fatalf("AdvanceProgress(5): %v", err)
	}

	frame, err := s.StartingFrame()
	if err != nil {
		t.Fatalf("StartingFrame: %v", err)
	}
	if frame != 11 {
		t.Fatalf("StartingFrame = %d, want 11 (out-of-order advance must not regress)", frame)
	}
}

func TestStoreEmptyResultOnlyAdvancesProgress(t *testing.T) {
	s := openTemp(t)

	if err := s.Store(ocrworker.Result{FrameNumber: 7}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var instanceCount int64
	if err := s.db.Model(&TextInstance{}).Count(&instanceCount).Error; err != nil {
		t.Fatalf("count text_instances: %v", err)
	}
	if instanceCount != 0 {
		t.Fatalf("text_instances count = %d, want 0 for an empty result", instanceCount)
	}

	frame, err := s.StartingFrame()
	if err != nil {
		t.Fatalf("StartingFrame: %v", err)
	}
	if frame != 8 {
		t.Fatalf("StartingFrame = %d, want 8", frame)
	}
}

func TestFindText(t *testing.T) {
	s := openTemp(t)

	if err := s.Store(ocrworker.Result{
		FrameNumber: 1,
		Entries:     []ocrworker.TextEntry{{Text: "GATE A12"}},
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store(ocrworker.Result{
		FrameNumber: 2,
		Entries:     []ocrworker.TextEntry{{Text: "GATE B7"}},
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	matches, err := s.FindText("GATE%")
	if err != nil {
		t.Fatalf("FindText: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("FindText matches = %d, want 2", len(matches))
	}
}

func TestOpenRejectsFutureSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.db")

	s, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.db.Exec(`UPDATE metadata SET version = ?`, CurrentVersion+1).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = Open(path, false)
	if err == nil {
		t.Fatal("expected Open to reject a future schema version")
	}
}
