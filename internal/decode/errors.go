package decode

import "errors"

var (
	errAllocFailed   = errors.New("decode: failed to allocate libav resource")
	errNoVideoStream = errors.New("decode: no video stream found in input file")
	errOpenInput     = errors.New("decode: failed to open input file")
	errStreamInfo    = errors.New("decode: failed to find stream information")
	errCodecParams   = errors.New("decode: failed to copy codec parameters to decoder context")
	errOpenCodec     = errors.New("decode: failed to open codec")
	errConvertRGB    = errors.New("decode: failed to convert frame to RGB24")
	errSendPacket    = errors.New("decode: error sending packet for decoding")
	errReceiveFrame  = errors.New("decode: error receiving decoded frame")
	errHWTransfer    = errors.New("decode: failed transferring hardware frame to system memory")
)
