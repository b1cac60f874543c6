package ocrworker

import (
	"sync"
	"testing"
	"time"

	"github.com/yowidin/ocrsuite/internal/framequeue"
	"github.com/yowidin/ocrsuite/internal/servicelog"
)

type fakeProvider struct {
	text string
}

func (f *fakeProvider) DoOCR(pixels []byte, width, height, bytesPerLine int) ([]TextEntry, error) {
	return []TextEntry{{Text: f.text, Left: 1, Top: 1, Right: 2, Bottom: 2, Confidence: 0.5}}, nil
}

func (f *fakeProvider) Close() {}

func TestFilterEntriesDropsShortText(t *testing.T) {
	in := []TextEntry{
		{Text: "ok"},
		{Text: "hello"},
		{Text: "  "},
		{Text: " ab "},
	}
	out := filterEntries(in)
	if len(out) != 1 || out[0].Text != "hello" {
		t.Fatalf("filterEntries = %+v, want only %q", out, "hello")
	}
}

func TestFarmProcessesAndSkipsFrames(t *testing.T) {
	q := framequeue.New(2, 3, 1)

	var mu sync.Mutex
	var results []Result
	onResult := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}

	skip := int64(2)
	filter := func(frame int64) bool { return frame == skip }

	factory := func() (Provider, error) { return &fakeProvider{text: "RUNWAY"}, nil }

	logger := servicelog.New(nil, true, t.TempDir())
	farm, err := NewFarm(logger, q, 1, factory, filter, onResult)
	if err != nil {
		t.Fatalf("NewFarm: %v", err)
	}

	for _, n := range []int64{1, 2, 3} {
		buf := q.TakeProducer()
		if buf == nil {
			t.Fatal("TakeProducer returned nil before shutdown")
		}
		buf.FrameNumber = n
		buf.Width, buf.Height = 1, 1
		q.ReturnConsumer(buf)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(results)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d results, want 2 (frame 2 should have been skipped)", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	q.Shutdown()
	farm.Wait()

	mu.Lock()
	defer mu.Unlock()
	seen := map[int64]bool{}
	for _, r := range results {
		seen[r.FrameNumber] = true
		if len(r.Entries) != 1 || r.Entries[0].Text != "RUNWAY" {
			t.Fatalf("unexpected entries for frame %d: %+v", r.FrameNumber, r.Entries)
		}
	}
	if seen[skip] {
		t.Fatalf("frame %d should have been skipped by filter", skip)
	}
	if !seen[1] || !seen[3] {
		t.Fatalf("expected frames 1 and 3 to be processed, got %+v", results)
	}
}
