package decode

/*
#include <libavcodec/avcodec.h>
#include <libavutil/hwcontext.h>
*/
import "C"

import "fmt"

// listHWDeviceTypes enumerates every hardware-acceleration device type this
// libav build knows about, in the order libav reports them.
func listHWDeviceTypes() []C.AVHWDeviceType {
	var types []C.AVHWDeviceType
	t := C.AV_HWDEVICE_TYPE_NONE
	for {
		t = C.av_hwdevice_iterate_types(t)
		if t == C.AV_HWDEVICE_TYPE_NONE {
			break
		}
		types = append(types, t)
	}
	return types
}

// defaultHWDeviceType picks the first hardware device type libav reports,
// matching the original engine's "use whatever is available" policy — it
// never tries to rank GPUs, only to avoid software decoding when it can.
func defaultHWDeviceType() (C.AVHWDeviceType, error) {
	types := listHWDeviceTypes()
	if len(types) == 0 {
		return C.AV_HWDEVICE_TYPE_NONE, fmt.Errorf("decode: no hardware decoders available")
	}
	return types[0], nil
}

// findPixelFormatForDecoder walks decoder's hw config list for an entry that
// both supports AV_CODEC_HW_CONFIG_METHOD_HW_DEVICE_CTX and matches
// deviceType, returning the pixel format the decoder will emit for frames
// produced on that device.
func findPixelFormatForDecoder(decoder *C.AVCodec, deviceType C.AVHWDeviceType) (C.AVPixelFormat, error) {
	for i := C.int(0); ; i++ {
		config := C.avcodec_get_hw_config(decoder, i)
		if config == nil {
			return C.AV_PIX_FMT_NONE, fmt.Errorf("decode: decoder does not support hw device type %d", deviceType)
		}
		if config.methods&C.AV_CODEC_HW_CONFIG_METHOD_HW_DEVICE_CTX != 0 && config.device_type == deviceType {
			return config.pix_fmt, nil
		}
	}
}
