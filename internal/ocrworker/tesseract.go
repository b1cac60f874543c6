package ocrworker

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractProvider implements Provider on top of a dedicated gosseract
// client, mirroring the original engine's one-TessBaseAPI-per-worker design.
type TesseractProvider struct {
	client *gosseract.Client
}

// NewTesseractProvider builds a Provider bound to a single language (e.g.
// "eng") and configuration data path, returning a ProviderFactory suitable
// for Farm.
func NewTesseractProvider(language, dataPath string) ProviderFactory {
	return func() (Provider, error) {
		client := gosseract.NewClient()
		if language != "" {
			if err := client.SetLanguage(language); err != nil {
				client.Close()
				return nil, fmt.Errorf("ocrworker: set language %q: %w", language, err)
			}
		}
		if dataPath != "" {
			client.TessdataPrefix = &dataPath
		}
		return &TesseractProvider{client: client}, nil
	}
}

// DoOCR runs text recognition plus bounding boxes over one RGB24 frame.
func (p *TesseractProvider) DoOCR(pixels []byte, width, height, bytesPerLine int) ([]TextEntry, error) {
	img := rgb24ToImage(pixels, width, height, bytesPerLine)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("ocrworker: encode frame: %w", err)
	}

	if err := p.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("ocrworker: load frame: %w", err)
	}

	boxes, err := p.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("ocrworker: recognize: %w", err)
	}

	entries := make([]TextEntry, 0, len(boxes))
	for _, box := range boxes {
		entries = append(entries, TextEntry{
			Left:       int32(box.Box.Min.X),
			Top:        int32(box.Box.Min.Y),
			Right:      int32(box.Box.Max.X),
			Bottom:     int32(box.Box.Max.Y),
			Confidence: float32(box.Confidence),
			Text:       box.Word,
		})
	}
	return entries, nil
}

// Close releases the underlying tesseract engine handle.
func (p *TesseractProvider) Close() {
	_ = p.client.Close()
}

func rgb24ToImage(pixels []byte, width, height, bytesPerLine int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		rowStart := y * bytesPerLine
		for x := 0; x < width; x++ {
			o := rowStart + x*3
			img.Set(x, y, color.RGBA{R: pixels[o], G: pixels[o+1], B: pixels[o+2], A: 0xff})
		}
	}
	return img
}
