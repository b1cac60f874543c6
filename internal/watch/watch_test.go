package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yowidin/ocrsuite/internal/servicelog"
)

func TestHistoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seen.csv")

	h, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if h.Seen("/videos/a.mp4") {
		t.Fatal("expected empty history")
	}

	if err := h.MarkSeen("/videos/a.mp4", time.Now()); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	reloaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory (reload): %v", err)
	}
	if !reloaded.Seen("/videos/a.mp4") {
		t.Fatal("expected a.mp4 to be marked seen after reload")
	}
	if reloaded.Seen("/videos/b.mp4") {
		t.Fatal("b.mp4 should not be marked seen")
	}
}

func TestWatcherIngestsSettledFileOnce(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	history, err := LoadHistory(filepath.Join(dir, "seen.csv"))
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	ready := make(chan string, 4)
	onReady := func(path string) error {
		ready <- path
		return nil
	}

	w := New(servicelog.New(nil, true, dir), history, dir, 20*time.Millisecond, onReady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case got := <-ready:
		if got != videoPath {
			t.Fatalf("ingested %q, want %q", got, videoPath)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file was never ingested")
	}

	// MarkSeen runs only after onReady returns, so allow it a moment to land.
	seenDeadline := time.Now().Add(2 * time.Second)
	for !history.Seen(videoPath) {
		if time.Now().After(seenDeadline) {
			t.Fatal("expected history to record the ingested file")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestWatcherIgnoresNonVideoExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	history, err := LoadHistory(filepath.Join(dir, "seen.csv"))
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	ready := make(chan string, 1)
	w := New(servicelog.New(nil, true, dir), history, dir, 20*time.Millisecond, func(path string) error {
		ready <- path
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	defer cancel()

	select {
	case got := <-ready:
		t.Fatalf("unexpected ingestion of non-video file %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}
