// Package config defines the on-disk configuration surface shared by the
// one-shot CLI and the daemon, and its defaulting/validation rules.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yowidin/ocrsuite/internal/decode"
)

// FrameFilter selects which picture types reach the OCR workers.
type FrameFilter = decode.FrameFilter

// FilterIAndP is the default: skip B-frames, which rarely carry fresh text.
const FilterIAndP = decode.FilterIAndP

// Config is the full configuration surface: a single video/database pair
// for the one-shot CLI, plus the watch/daemon fields used by cmd/ocrsuited.
type Config struct {
	// OCRThreads is the size of the OCR worker pool.
	OCRThreads int `yaml:"ocrThreads"`

	// QueueDepth is the number of frame buffers shared between the decoder
	// and the worker pool.
	QueueDepth int `yaml:"queueDepth"`

	// VideoFile is the input video for a one-shot run. Ignored in watch mode.
	VideoFile string `yaml:"videoFile"`

	// DatabaseFile is the embedded result store path.
	DatabaseFile string `yaml:"databaseFile"`

	// Language is the tesseract language code, e.g. "eng".
	Language string `yaml:"language"`

	// TessDataPath optionally overrides the tessdata directory.
	TessDataPath string `yaml:"tessDataPath"`

	// FrameFilter selects which picture types are OCR'd.
	FrameFilter FrameFilter `yaml:"frameFilter"`

	// SaveBitmaps, when true, copies every decoded RGB24 buffer handed to the
	// OCR worker pool out to BitmapDirectory as a raw ".rgb" dump, one file per frame,
	// for debugging. This never encodes or interprets the buffer — no BMP
	// or PNG encoding happens here.
	SaveBitmaps     bool   `yaml:"saveBitmaps"`
	BitmapDirectory string `yaml:"bitmapDirectory"`

	// WatchDirectory, when non-empty, puts cmd/ocrsuited into directory-watch
	// mode instead of a single one-shot run.
	WatchDirectory string `yaml:"watchDirectory"`
	HistoryFile    string `yaml:"historyFile"`
	SettleSeconds  int    `yaml:"settleSeconds"`

	LogFolder  string `yaml:"logFolder"`
	MetricsAddr string `yaml:"metricsAddr"`
	Debug      bool   `yaml:"debug"`
}

// Load reads and parses the YAML config at path, then applies Check.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.Check(path); err != nil {
		return nil, err
	}
	return &c, nil
}

// Check applies defaults in place and validates required fields, mirroring
// the teacher's Config.Check pattern.
func (c *Config) Check(configPath string) error {
	configDir := filepath.Dir(configPath)

	if c.OCRThreads < 1 {
		c.OCRThreads = 2
	}
	if c.QueueDepth < 1 {
		c.QueueDepth = 2 * c.OCRThreads
	}
	if c.DatabaseFile == "" {
		return errors.New("databaseFile config parameter is required")
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.FrameFilter == 0 {
		c.FrameFilter = FilterIAndP
	}
	if c.LogFolder == "" {
		c.LogFolder = filepath.Join(configDir, "logs")
	}
	if c.SettleSeconds < 1 {
		c.SettleSeconds = 3
	}
	if c.WatchDirectory != "" && c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(configDir, "seen.csv")
	}
	if c.WatchDirectory == "" && c.VideoFile == "" {
		return errors.New("either videoFile or watchDirectory must be set")
	}
	if c.SaveBitmaps && c.BitmapDirectory == "" {
		c.BitmapDirectory = filepath.Join(configDir, "bitmaps")
	}
	return nil
}
