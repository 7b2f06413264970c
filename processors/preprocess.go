package processors

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"videoInterpret/core"
)

// videoExtensions are the container formats accepted at the entry point.
var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true, ".flv": true,
}

// ValidateVideoPath checks the input file before any ffmpeg call is paid
// for: the file must exist and carry a recognized video extension.
func ValidateVideoPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return core.InvalidConfiguration("video_path", "must not be empty")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !videoExtensions[ext] {
		return core.InvalidConfiguration("video_path", "unsupported video format %q", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return core.InvalidConfiguration("video_path", "not accessible: %v", err)
	}
	if info.IsDir() {
		return core.InvalidConfiguration("video_path", "%s is a directory", path)
	}
	return nil
}

// PreprocessResult is everything downstream stages need from one video.
type PreprocessResult struct {
	JobID     string       `json:"job_id"`
	AudioPath string       `json:"audio_path"`
	Frames    []core.Frame `json:"frames"`
	Duration  float64      `json:"duration_sec"`
}

// PreprocessVideo copies the input into the job directory, extracts mono
// 16 kHz audio and samples frames at the workflow's rate. Frame timestamps
// follow directly from the sampling rate: frame i sits at i/fps seconds.
func PreprocessVideo(videoPath, jobDir string, fps float64) (*PreprocessResult, error) {
	if err := ValidateVideoPath(videoPath); err != nil {
		return nil, err
	}
	if fps <= 0 {
		return nil, core.InvalidConfiguration("fps", "must be positive, got %g", fps)
	}

	framesDir := filepath.Join(jobDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create job directory: %w", err)
	}

	dst := filepath.Join(jobDir, "input"+filepath.Ext(videoPath))
	if err := copyFile(videoPath, dst); err != nil {
		return nil, fmt.Errorf("copy video file: %w", err)
	}

	audioPath := filepath.Join(jobDir, "audio.wav")
	if err := extractAudio(dst, audioPath); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	if err := extractFrames(dst, framesDir, fps); err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}

	frames, err := EnumerateFrames(framesDir, fps)
	if err != nil {
		return nil, fmt.Errorf("enumerate frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", videoPath)
	}

	duration, err := probeDuration(dst)
	if err != nil {
		// duration is informational only; frame timestamps do not need it
		duration = 0
	}

	return &PreprocessResult{
		JobID:     filepath.Base(jobDir),
		AudioPath: audioPath,
		Frames:    frames,
		Duration:  duration,
	}, nil
}

func extractAudio(inputPath, audioOut string) error {
	args := []string{"-y", "-i", inputPath, "-vn", "-ac", "1", "-ar", "16000", "-f", "wav", audioOut}
	return runFFmpeg(args)
}

func extractFrames(inputPath, framesDir string, fps float64) error {
	pattern := filepath.Join(framesDir, "%05d.jpg")
	args := []string{"-y", "-i", inputPath, "-vf", fmt.Sprintf("fps=%g", fps), pattern}
	return runFFmpeg(args)
}

// EnumerateFrames lists the extracted frames in index order. ffmpeg numbers
// output files from 1; frame indices are zero-based.
func EnumerateFrames(framesDir string, fps float64) ([]core.Frame, error) {
	d, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, err
	}
	frames := make([]core.Frame, 0, len(d))
	for _, e := range d {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jpg" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		idx := n - 1
		frames = append(frames, core.Frame{
			Index:        idx,
			Path:         filepath.Join(framesDir, e.Name()),
			TimestampSec: float64(idx) / fps,
		})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames, nil
}

func copyFile(src, dst string) error {
	s, err := os.Open(src)
	if err != nil {
		return err
	}
	defer s.Close()
	d, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer d.Close()
	_, err = io.Copy(d, s)
	return err
}

func runFFmpeg(args []string) error {
	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func probeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	s := strings.TrimSpace(out.String())
	return strconv.ParseFloat(s, 64)
}
