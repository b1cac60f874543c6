package decode

/*
#cgo pkg-config: libavformat libavcodec libavutil libswscale

#include "shim.h"
*/
import "C"
