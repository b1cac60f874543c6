package decode

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FrameFilter selects which libav picture types reach the OCR worker pool.
// Values mirror the original engine's frame_filter bitmask exactly so
// config files and command-line flags carry over unchanged in meaning.
type FrameFilter uint16

const (
	FilterIFrames FrameFilter = 1 << iota
	FilterPFrames
	FilterBFrames
)

// FilterIAndP is the default: I and P frames carry almost all on-screen
// text; B-frames rarely do and roughly double decode cost.
const FilterIAndP = FilterIFrames | FilterPFrames

// FilterAll includes every picture type.
const FilterAll = FilterIFrames | FilterPFrames | FilterBFrames

// ParseFrameFilter parses the "i", "p", "b", "i_and_p", "all" tokens used in
// config files and on the command line.
func ParseFrameFilter(s string) (FrameFilter, error) {
	switch s {
	case "i":
		return FilterIFrames, nil
	case "p":
		return FilterPFrames, nil
	case "b":
		return FilterBFrames, nil
	case "i_and_p":
		return FilterIAndP, nil
	case "all":
		return FilterAll, nil
	default:
		return 0, fmt.Errorf("decode: invalid frame filter %q (want i, p, b, i_and_p, or all)", s)
	}
}

// String renders f back into the token ParseFrameFilter accepts.
func (f FrameFilter) String() string {
	switch f {
	case FilterIFrames:
		return "i"
	case FilterPFrames:
		return "p"
	case FilterBFrames:
		return "b"
	case FilterIAndP:
		return "i_and_p"
	case FilterAll:
		return "all"
	default:
		return fmt.Sprintf("0x%x", uint16(f))
	}
}

// UnmarshalYAML lets FrameFilter be written as a string token in config
// files, e.g. "frameFilter: i_and_p".
func (f *FrameFilter) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFrameFilter(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalYAML renders FrameFilter back as the string token it was parsed
// from, so a loaded config can round-trip through re-marshaling.
func (f FrameFilter) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// pictureType mirrors the subset of AVPictureType this decoder cares about.
type pictureType int

const (
	pictureTypeNone pictureType = iota
	pictureTypeI
	pictureTypeP
	pictureTypeB
)

// pictureTypeToFilter maps a decoded picture type to the bit it occupies in
// FrameFilter, falling back to the I-frame bit for any type the original
// project doesn't otherwise classify (it does the same).
func pictureTypeToFilter(t pictureType) FrameFilter {
	switch t {
	case pictureTypeP:
		return FilterPFrames
	case pictureTypeB:
		return FilterBFrames
	default:
		return FilterIFrames
	}
}

// Frame is one decoded, RGB24-converted video frame handed to the OCR
// worker pool via framequeue.Buffer.
type Frame struct {
	FrameNumber  int64
	Width        int
	Height       int
	BytesPerLine int
	Pixels       []byte
}

// Action tells the decoder whether to keep decoding after a frame callback.
type Action int

const (
	ActionContinue Action = iota
	ActionStop
)

// FrameFunc is invoked once per frame that survives the configured
// FrameFilter and the starting-frame skip. Returning ActionStop ends Run
// after this frame.
type FrameFunc func(f Frame) Action
