package decode

/*
#include "shim.h"
*/
import "C"

import (
	"context"
	"math"
	"unsafe"
)

// Run reads packets from the video stream until the file is exhausted, the
// context is cancelled, or onFrame returns ActionStop. It mirrors the
// original engine's read-frame loop: decode every packet on the video
// stream, then flush the decoder with a final nil packet.
func (d *Decoder) Run(ctx context.Context, onFrame FrameFunc) error {
	packet, err := newResource(allocPacket, freePacket)
	if err != nil {
		return err
	}
	defer packet.Close()

	frame, err := newResource(allocFrame, freeFrame)
	if err != nil {
		return err
	}
	defer frame.Close()

	var swFrame *resource[C.AVFrame]
	if d.hwPixFmt != C.AV_PIX_FMT_NONE {
		swFrame, err = newResource(allocFrame, freeFrame)
		if err != nil {
			return err
		}
		defer swFrame.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ret := C.av_read_frame(d.inputCtx.get(), packet.get())
		if ret < 0 {
			// End of stream: flush the decoder with a nil packet.
			if _, err := d.handleDecodedFrames(nil, frame, swFrame, onFrame); err != nil {
				return err
			}
			return nil
		}

		if packet.get().stream_index != d.videoIdx {
			C.av_packet_unref(packet.get())
			continue
		}

		cont, err := d.handleDecodedFrames(packet.get(), frame, swFrame, onFrame)
		C.av_packet_unref(packet.get())
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// handleDecodedFrames sends packet (nil to flush) to the decoder and drains
// every frame it produces, converting, filtering, and delivering each one
// that survives FrameFilter and the starting-frame cutoff. It returns
// cont=false once onFrame has asked the run loop to stop.
func (d *Decoder) handleDecodedFrames(packet *C.AVPacket, frame, swFrame *resource[C.AVFrame], onFrame FrameFunc) (cont bool, err error) {
	if C.avcodec_send_packet(d.codecCtx.get(), packet) < 0 {
		return false, errSendPacket
	}

	for {
		ret := C.avcodec_receive_frame(d.codecCtx.get(), frame.get())
		if C.ocrsuite_is_eof(ret) != 0 || C.ocrsuite_is_eagain(ret) != 0 {
			return true, nil
		}
		if ret < 0 {
			return false, errReceiveFrame
		}

		decoded := frame.get()
		filter := pictureTypeToFilter(pictureType(decoded.pict_type))
		if filter&d.filter == 0 {
			C.av_frame_unref(decoded)
			continue
		}

		frameNumber := int64(math.Round(float64(decoded.pts) * d.timeRatio * d.frameRatio))

		src := decoded
		if d.hwPixFmt != C.AV_PIX_FMT_NONE && decoded.format == C.int(d.hwPixFmt) {
			if C.av_hwframe_transfer_data(swFrame.get(), decoded, 0) < 0 {
				C.av_frame_unref(decoded)
				return false, errHWTransfer
			}
			src = swFrame.get()
		}
		if frameNumber < d.startingFrame {
			C.av_frame_unref(decoded)
			if src != decoded {
				C.av_frame_unref(src)
			}
			continue
		}

		rgb, err := d.convertToRGB(src)
		C.av_frame_unref(decoded)
		if src != decoded {
			C.av_frame_unref(src)
		}
		if err != nil {
			return false, err
		}

		action := onFrame(Frame{
			FrameNumber:  frameNumber,
			Width:        rgb.Width,
			Height:       rgb.Height,
			BytesPerLine: rgb.BytesPerLine,
			Pixels:       rgb.Pixels,
		})
		if action == ActionStop {
			return false, nil
		}
	}
}

// convertToRGB scales src to RGB24 via the shim and copies the result into a
// Go-owned byte slice, releasing the C buffer before returning.
func (d *Decoder) convertToRGB(src *C.AVFrame) (Frame, error) {
	var out C.ocrsuite_rgb_frame
	if C.ocrsuite_convert_to_rgb(src, &d.swsCtx, &out) < 0 {
		return Frame{}, errConvertRGB
	}
	defer C.av_free(unsafe.Pointer(out.data))

	pixels := C.GoBytes(unsafe.Pointer(out.data), out.size)
	return Frame{
		Width:        int(out.width),
		Height:       int(out.height),
		BytesPerLine: int(out.bytes_per_line),
		Pixels:       pixels,
	}, nil
}
