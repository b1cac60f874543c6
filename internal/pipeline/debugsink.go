package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yowidin/ocrsuite/internal/decode"
)

// newBitmapSink returns a hook that copies every decoded RGB24 buffer out to
// dir, one raw ".rgb" file per frame, when enabled. It never interprets or
// encodes the buffer — no BMP/PNG encoding happens here, matching the
// engine's save-bitmaps debug flag, which only needs the raw pixels handed
// to some external tool. Returns a nil hook when disabled.
func newBitmapSink(enabled bool, dir string) (func(decode.Frame) error, error) {
	if !enabled {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: creating bitmap directory: %w", err)
	}
	return func(f decode.Frame) error {
		name := filepath.Join(dir, fmt.Sprintf("frame-%010d-%dx%d.rgb", f.FrameNumber, f.Width, f.Height))
		return os.WriteFile(name, f.Pixels, 0o644)
	}, nil
}
