package decode

/*
#include "shim.h"
*/
import "C"

import "fmt"

// seekToFrame asks libav to seek to the keyframe at or before frameNumber on
// the video stream, returning whether the seek succeeded.
func (d *Decoder) seekToFrame(frameNumber int64) bool {
	ts := C.int64_t(d.frameNumberToTimestamp(frameNumber))
	ret := C.avformat_seek_file(d.inputCtx.get(), d.videoIdx, 0, ts, ts, C.AVSEEK_FLAG_FRAME)
	return ret >= 0
}

// seekToClosestFrame seeks as close as possible to the decoder's requested
// starting frame, using the bisection search implemented by
// closestSeekableFrame.
func (d *Decoder) seekToClosestFrame(minFrame, maxFrame, lastWorking int64) error {
	target, ok := closestSeekableFrame(minFrame, maxFrame, lastWorking, d.seekToFrame)
	if !ok {
		return fmt.Errorf("decode: failed to seek to frame %d", target)
	}
	return nil
}

// closestSeekableFrame is a direct port of the original recursive binary
// search: libav containers sometimes refuse to seek to an exact frame, so on
// failure it probes progressively closer frames until seek succeeds, falling
// back to the last frame known to work. It reports the frame it finally left
// the stream positioned at, and whether that final seek itself succeeded.
// Kept independent of cgo so the search logic can be exercised directly.
func closestSeekableFrame(minFrame, maxFrame, lastWorking int64, seek func(frame int64) bool) (frame int64, ok bool) {
	if maxFrame == 0 {
		return lastWorking, seek(lastWorking)
	}

	if seek(maxFrame) {
		return maxFrame, true
	}

	middleFrame := minFrame + (maxFrame-minFrame)/2
	if middleFrame == minFrame || middleFrame == maxFrame {
		// Too deep to bisect any further, give up on the requested frame.
		return lastWorking, seek(lastWorking)
	}

	if seek(middleFrame) {
		return closestSeekableFrame(middleFrame, maxFrame, middleFrame, seek)
	}
	return closestSeekableFrame(minFrame, middleFrame, lastWorking, seek)
}
