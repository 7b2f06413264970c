package processors

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"videoInterpret/config"
	"videoInterpret/core"
)

// ASRProvider turns an extracted audio track into a time-coded
// transcription. The language hint is an ISO 639-1 code; providers may
// ignore it.
type ASRProvider interface {
	Transcribe(ctx context.Context, audioPath, language string) (core.Transcription, error)
}

// ========== Mock provider ==========

// MockASR produces placeholder segments from the audio duration alone.
// Used offline and in tests.
type MockASR struct{}

func (MockASR) Transcribe(_ context.Context, audioPath, language string) (core.Transcription, error) {
	dur, err := probeDuration(audioPath)
	if err != nil {
		return core.Transcription{}, err
	}
	segLen := 15.0
	segs := make([]core.Segment, 0)
	for start := 0.0; start < dur; start += segLen {
		end := start + segLen
		if end > dur {
			end = dur
		}
		segs = append(segs, core.Segment{
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs", start, end),
		})
	}
	return core.Transcription{
		Text:     joinSegments(segs),
		Segments: segs,
		Language: language,
	}, nil
}

// ========== Whisper API provider ==========

// WhisperASR transcribes via the Whisper API, requesting the verbose JSON
// format so segment timestamps come back with the text.
type WhisperASR struct {
	cli   *openai.Client
	model string
}

// NewWhisperASR builds the provider from the service configuration.
func NewWhisperASR(cfg *config.Config) *WhisperASR {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.WhisperModel
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperASR{cli: openai.NewClientWithConfig(clientConfig), model: model}
}

func (w *WhisperASR) Transcribe(ctx context.Context, audioPath, language string) (core.Transcription, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: language,
	})
	if err != nil {
		return core.Transcription{}, fmt.Errorf("whisper transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return core.Transcription{}, fmt.Errorf("empty transcription result")
	}

	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	if len(segs) == 0 {
		// some backends return plain text only; fall back to one segment
		// spanning the whole track
		dur, _ := probeDuration(audioPath)
		segs = []core.Segment{{Start: 0, End: dur, Text: text}}
	}

	lang := resp.Language
	if lang == "" {
		lang = language
	}
	return core.Transcription{Text: text, Segments: segs, Language: lang}, nil
}

// PickASRProvider selects the transcription backend: ASR=mock forces the
// mock, otherwise Whisper is used when API configuration is available.
func PickASRProvider(cfg *config.Config) ASRProvider {
	asr := strings.ToLower(strings.TrimSpace(os.Getenv("ASR")))
	if asr == "mock" {
		return MockASR{}
	}
	if cfg == nil || !cfg.HasValidAPI() {
		log.Printf("[asr] API configuration not found, using mock transcription")
		return MockASR{}
	}
	return NewWhisperASR(cfg)
}

func joinSegments(segs []core.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
