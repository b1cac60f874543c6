package decode

import "testing"

func TestClosestSeekableFrameStartingFromZero(t *testing.T) {
	var sought []int64
	seek := func(frame int64) bool {
		sought = append(sought, frame)
		return true
	}
	frame, ok := closestSeekableFrame(0, 0, 0, seek)
	if !ok || frame != 0 {
		t.Fatalf("closestSeekableFrame(0,0,0) = (%d,%v), want (0,true)", frame, ok)
	}
	if len(sought) != 1 || sought[0] != 0 {
		t.Fatalf("expected a single seek to frame 0, got %v", sought)
	}
}

func TestClosestSeekableFrameSucceedsDirectly(t *testing.T) {
	seek := func(frame int64) bool { return true }
	frame, ok := closestSeekableFrame(0, 1000, 0, seek)
	if !ok || frame != 1000 {
		t.Fatalf("closestSeekableFrame = (%d,%v), want (1000,true)", frame, ok)
	}
}

func TestClosestSeekableFrameBisectsOnFailure(t *testing.T) {
	// Only frames <= 400 are seekable; expect the search to end on a
	// seekable frame (the bisection converges on 400 itself).
	seekable := int64(400)
	var lastSuccessful int64 = -1
	seek := func(frame int64) bool {
		if frame <= seekable {
			lastSuccessful = frame
			return true
		}
		return false
	}
	frame, ok := closestSeekableFrame(0, 1000, 0, seek)
	if !ok {
		t.Fatalf("expected eventual success, got ok=false landing at %d", frame)
	}
	if frame > seekable {
		t.Fatalf("closestSeekableFrame landed on unseekable frame %d (seekable <= %d)", frame, seekable)
	}
	if lastSuccessful < 0 {
		t.Fatal("expected at least one successful seek")
	}
}

func TestClosestSeekableFrameFallsBackWhenNothingSeekable(t *testing.T) {
	seek := func(frame int64) bool { return frame == 0 }
	frame, ok := closestSeekableFrame(0, 1000, 0, seek)
	if !ok || frame != 0 {
		t.Fatalf("closestSeekableFrame = (%d,%v), want (0,true) as the last-working fallback", frame, ok)
	}
}
