package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckAppliesDefaults(t *testing.T) {
	c := &Config{DatabaseFile: "results.db", VideoFile: "in.mp4"}
	if err := c.Check("/tmp/cfg/ocrsuite.yaml"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if c.OCRThreads != 2 {
		t.Fatalf("OCRThreads = %d, want 2", c.OCRThreads)
	}
	if c.QueueDepth != 4 {
		t.Fatalf("QueueDepth = %d, want 4", c.QueueDepth)
	}
	if c.Language != "eng" {
		t.Fatalf("Language = %q, want eng", c.Language)
	}
	if c.FrameFilter != FilterIAndP {
		t.Fatalf("FrameFilter = %d, want %d", c.FrameFilter, FilterIAndP)
	}
	if c.LogFolder != filepath.Join("/tmp/cfg", "logs") {
		t.Fatalf("LogFolder = %q", c.LogFolder)
	}
}

func TestCheckRequiresDatabaseFile(t *testing.T) {
	c := &Config{VideoFile: "in.mp4"}
	if err := c.Check("/tmp/cfg/ocrsuite.yaml"); err == nil {
		t.Fatal("expected error for missing databaseFile")
	}
}

func TestCheckRequiresVideoOrWatch(t *testing.T) {
	c := &Config{DatabaseFile: "results.db"}
	if err := c.Check("/tmp/cfg/ocrsuite.yaml"); err == nil {
		t.Fatal("expected error when neither videoFile nor watchDirectory is set")
	}

	c2 := &Config{DatabaseFile: "results.db", WatchDirectory: "/videos"}
	if err := c2.Check("/tmp/cfg/ocrsuite.yaml"); err != nil {
		t.Fatalf("Check with watchDirectory: %v", err)
	}
	if c2.HistoryFile == "" {
		t.Fatal("expected HistoryFile to be defaulted when WatchDirectory is set")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocrsuite.yaml")
	contents := "databaseFile: results.db\nvideoFile: in.mp4\nocrThreads: 4\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OCRThreads != 4 {
		t.Fatalf("OCRThreads = %d, want 4", c.OCRThreads)
	}
	if c.DatabaseFile != "results.db" {
		t.Fatalf("DatabaseFile = %q, want results.db", c.DatabaseFile)
	}
}
