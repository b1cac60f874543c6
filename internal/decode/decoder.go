package decode

/*
#include "shim.h"
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"math"
	"time"
	"unsafe"
)

func allocFormatContext() *C.AVFormatContext { return C.avformat_alloc_context() }
func freeFormatContext(ptr *C.AVFormatContext) {
	C.avformat_free_context(ptr)
}

func allocCodecContext() *C.AVCodecContext {
	return C.avcodec_alloc_context3(nil)
}
func freeCodecContext(ptr *C.AVCodecContext) {
	C.avcodec_free_context(&ptr)
}

func allocPacket() *C.AVPacket { return C.av_packet_alloc() }
func freePacket(ptr *C.AVPacket) { C.av_packet_free(&ptr) }

func allocFrame() *C.AVFrame { return C.av_frame_alloc() }
func freeFrame(ptr *C.AVFrame) { C.av_frame_free(&ptr) }

// Decoder drives a single video file through libav, emitting RGB24 frames
// that survive FrameFilter and the resume point to a FrameFunc, the Go
// equivalent of the original engine's decoder class.
type Decoder struct {
	path          string
	filter        FrameFilter
	startingFrame int64

	inputCtx *resource[C.AVFormatContext]
	codecCtx *resource[C.AVCodecContext]
	videoIdx C.int

	hwDeviceCtx *C.AVBufferRef
	hwPixFmt    C.AVPixelFormat
	hwRequested *C.AVPixelFormat // C-owned, pinned for ctx->opaque's lifetime

	swsCtx *C.struct_SwsContext

	frameRatio float64
	timeRatio  float64

	frameCount *int64
}

// Open opens path, negotiates hardware decoding with a software fallback,
// and seeks as close as possible to startingFrame before returning.
func Open(path string, filter FrameFilter, startingFrame int64) (*Decoder, error) {
	d := &Decoder{path: path, filter: filter, startingFrame: startingFrame, videoIdx: -1}

	inputCtx, err := newResource(allocFormatContext, freeFormatContext)
	if err != nil {
		return nil, err
	}
	d.inputCtx = inputCtx

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ctxPtr := inputCtx.get()
	if C.avformat_open_input(&ctxPtr, cPath, nil, nil) != 0 {
		return nil, fmt.Errorf("%w: %s", errOpenInput, path)
	}
	d.inputCtx.ptr = ctxPtr

	if C.avformat_find_stream_info(d.inputCtx.get(), nil) < 0 {
		return nil, errStreamInfo
	}

	var cDecoder *C.AVCodec
	streamIdx := C.av_find_best_stream(d.inputCtx.get(), C.AVMEDIA_TYPE_VIDEO, -1, -1, &cDecoder, 0)
	if streamIdx < 0 {
		return nil, errNoVideoStream
	}
	d.videoIdx = streamIdx

	videoStream := streamAt(d.inputCtx.get(), streamIdx)

	codecCtx, err := newResource(allocCodecContext, freeCodecContext)
	if err != nil {
		return nil, err
	}
	d.codecCtx = codecCtx

	if C.avcodec_parameters_to_context(d.codecCtx.get(), videoStream.codecpar) < 0 {
		return nil, errCodecParams
	}

	if err := d.setupHWDecoding(cDecoder, videoStream); err != nil {
		// Fall back to pure software decoding, exactly as the original does.
		d.hwPixFmt = C.AV_PIX_FMT_NONE
		d.codecCtx.reset(allocCodecContext)
		if C.avcodec_parameters_to_context(d.codecCtx.get(), videoStream.codecpar) < 0 {
			return nil, errCodecParams
		}
	}

	if C.avcodec_open2(d.codecCtx.get(), cDecoder, nil) < 0 {
		return nil, errOpenCodec
	}

	d.frameRatio = float64(C.av_q2d(videoStream.avg_frame_rate))
	d.timeRatio = float64(C.av_q2d(videoStream.time_base))

	if err := d.seekToClosestFrame(0, startingFrame, 0); err != nil {
		return nil, err
	}

	duration := int64(d.inputCtx.get().duration)
	if duration > 0 {
		count := int64(float64(duration) / float64(C.AV_TIME_BASE) * d.frameRatio)
		if count > 0 {
			d.frameCount = &count
		}
	}

	return d, nil
}

// setupHWDecoding installs the hardware device context and pixel-format
// negotiation callback on codecCtx. Any error here is recoverable: the
// caller resets to a plain software decode context.
func (d *Decoder) setupHWDecoding(decoder *C.AVCodec, stream *C.AVStream) error {
	deviceType, err := defaultHWDeviceType()
	if err != nil {
		return err
	}

	pixFmt, err := findPixelFormatForDecoder(decoder, deviceType)
	if err != nil {
		return err
	}
	d.hwPixFmt = pixFmt

	requested := (*C.AVPixelFormat)(C.malloc(C.size_t(unsafe.Sizeof(C.AVPixelFormat(0)))))
	*requested = pixFmt
	d.hwRequested = requested
	C.ocrsuite_install_get_format(d.codecCtx.get(), requested)

	var hwDeviceCtx *C.AVBufferRef
	if C.av_hwdevice_ctx_create(&hwDeviceCtx, deviceType, nil, nil, 0) < 0 {
		C.free(unsafe.Pointer(requested))
		d.hwRequested = nil
		return fmt.Errorf("decode: failed to create hardware device context")
	}
	d.hwDeviceCtx = hwDeviceCtx
	d.codecCtx.get().hw_device_ctx = C.av_buffer_ref(hwDeviceCtx)
	return nil
}

// frameNumberToTimestamp implements timestamp = round(time_in_seconds /
// time_base), where time_in_seconds = frame_number / avg_frame_rate — the
// exact inverse of the formula used to assign a frame number to a decoded
// frame's pts.
func (d *Decoder) frameNumberToTimestamp(frameNumber int64) int64 {
	timeInSeconds := float64(frameNumber) / d.frameRatio
	return int64(math.Round(timeInSeconds / d.timeRatio))
}

// FrameNumberToDuration converts a frame number to its nominal playback
// offset.
func (d *Decoder) FrameNumberToDuration(frameNumber int64) time.Duration {
	seconds := float64(frameNumber) / d.frameRatio
	return time.Duration(seconds * float64(time.Second))
}

// FrameCount returns the total frame count if the container reported a
// usable duration, or ok=false otherwise.
func (d *Decoder) FrameCount() (count int64, ok bool) {
	if d.frameCount == nil {
		return 0, false
	}
	return *d.frameCount, true
}

// Close releases every libav resource this decoder holds.
func (d *Decoder) Close() {
	if d.swsCtx != nil {
		C.sws_freeContext(d.swsCtx)
		d.swsCtx = nil
	}
	if d.hwDeviceCtx != nil {
		C.av_buffer_unref(&d.hwDeviceCtx)
	}
	if d.hwRequested != nil {
		C.free(unsafe.Pointer(d.hwRequested))
		d.hwRequested = nil
	}
	if d.codecCtx != nil {
		d.codecCtx.Close()
	}
	if d.inputCtx != nil {
		d.inputCtx.Close()
	}
}

// streamAt indexes AVFormatContext.streams, which cgo sees as a **AVStream;
// kept as a tiny helper so the pointer arithmetic lives in one place.
func streamAt(ctx *C.AVFormatContext, idx C.int) *C.AVStream {
	base := unsafe.Pointer(ctx.streams)
	size := unsafe.Sizeof(uintptr(0))
	elem := unsafe.Pointer(uintptr(base) + uintptr(idx)*size)
	return *(**C.AVStream)(elem)
}
