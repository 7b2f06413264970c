package processors

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"videoInterpret/core"
)

func TestValidateVideoPath(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(video, []byte("not a real video"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateVideoPath(video); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}

	bad := []string{
		"",
		filepath.Join(dir, "missing.mp4"),
		filepath.Join(dir, "notes.txt"),
		dir + ".mp4", // does not exist
	}
	for _, p := range bad {
		if err := ValidateVideoPath(p); err == nil {
			t.Errorf("ValidateVideoPath(%q) expected an error", p)
		} else if !core.IsInvalidConfiguration(err) {
			t.Errorf("ValidateVideoPath(%q) expected InvalidConfigurationError, got %v", p, err)
		}
	}

	if err := ValidateVideoPath(dir); err == nil {
		t.Error("directory accepted as a video path")
	}
}

func TestEnumerateFrames(t *testing.T) {
	dir := t.TempDir()
	// ffmpeg numbers from 00001; drop a stray non-frame file in too
	for i := 1; i <= 4; i++ {
		name := filepath.Join(dir, fmt.Sprintf("%05d.jpg", i))
		if err := os.WriteFile(name, []byte{0xff, 0xd8}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "audio.wav"), []byte{0}, 0644); err != nil {
		t.Fatal(err)
	}

	frames, err := EnumerateFrames(dir, 0.5)
	if err != nil {
		t.Fatalf("EnumerateFrames failed: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d: index = %d", i, f.Index)
		}
		want := float64(i) / 0.5
		if f.TimestampSec != want {
			t.Errorf("frame %d: timestamp = %g, want %g", i, f.TimestampSec, want)
		}
	}
}

func TestEnumerateFramesEmptyDir(t *testing.T) {
	frames, err := EnumerateFrames(t.TempDir(), 1.0)
	if err != nil {
		t.Fatalf("EnumerateFrames failed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}
