package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"videoInterpret/config"
)

// TaskRequest is one unit of work handed to the external agent runtime.
type TaskRequest struct {
	SubagentKind string
	Description  string
	Prompt       string
	Model        string
}

// AgentRunner is the dispatch boundary: submit one prompt, obtain one text
// response. The returned text is untrusted; the validator defends against
// anything it may contain.
type AgentRunner interface {
	Submit(ctx context.Context, task TaskRequest) (string, error)
}

// ========== OpenAI-backed runner ==========

// OpenAIAgentRunner dispatches prompts as chat completions.
type OpenAIAgentRunner struct {
	cli     *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIAgentRunner builds a runner from the service configuration.
// defaultModel is used when a task does not designate its own.
func NewOpenAIAgentRunner(cfg *config.Config) *OpenAIAgentRunner {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIAgentRunner{
		cli:     openai.NewClientWithConfig(clientConfig),
		model:   cfg.ChatModel,
		timeout: 3 * time.Minute,
	}
}

func (r *OpenAIAgentRunner) Submit(ctx context.Context, task TaskRequest) (string, error) {
	model := task.Model
	if model == "" {
		model = r.model
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: task.Prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("agent dispatch failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("agent returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ========== Mock runner ==========

// MockAgentRunner synthesizes a well-formed response from the prompt alone.
// The prompt compiler embeds the batch header deterministically, so the
// mock can read the batch identity back out and answer consistently. Used
// offline and in tests.
type MockAgentRunner struct{}

var (
	mockBatchID   = regexp.MustCompile(`Batch ID: (\S+)`)
	mockFrameSpan = regexp.MustCompile(`Frames: (\d+)-(\d+) \((\d+) total\)`)
	mockWindow    = regexp.MustCompile(`Time window: ([0-9.]+)s - ([0-9.]+)s`)
)

func (MockAgentRunner) Submit(_ context.Context, task TaskRequest) (string, error) {
	batchID := "batch_0"
	if m := mockBatchID.FindStringSubmatch(task.Prompt); m != nil {
		batchID = m[1]
	}
	startFrame, endFrame, count := 0, 0, 1
	if m := mockFrameSpan.FindStringSubmatch(task.Prompt); m != nil {
		startFrame, _ = strconv.Atoi(m[1])
		endFrame, _ = strconv.Atoi(m[2])
		count, _ = strconv.Atoi(m[3])
	}
	start, end := 0.0, 0.0
	if m := mockWindow.FindStringSubmatch(task.Prompt); m != nil {
		start, _ = strconv.ParseFloat(m[1], 64)
		end, _ = strconv.ParseFloat(m[2], 64)
	}

	resp := map[string]any{
		"batch_id":        batchID,
		"time_range":      map[string]float64{"start": start, "end": end},
		"frames_analyzed": count,
		"summary":         fmt.Sprintf("Placeholder analysis of %s covering frames %d-%d", batchID, startFrame, endFrame),
		"audio_visual_correlations": []any{},
	}

	if strings.Contains(task.Prompt, "geometric reconstruction") {
		resp["features"] = []any{
			map[string]any{
				"operation": "extrude",
				"sketch": map[string]any{
					"plane": "frontal",
					"primitives": []any{
						map[string]any{
							"kind": "circle",
							"dimensions": []any{
								map[string]any{
									"name": "diameter", "value": 50.0, "unit": "mm",
									"provenance": map[string]any{"source": "inferred"},
								},
							},
						},
					},
				},
				"detection":    map[string]any{"visual_confidence": 0.5, "audio_correlation": "none"},
				"source_frame": startFrame,
			},
		}
	} else {
		entries := make([]any, 0, count)
		for i := 0; i < count; i++ {
			entries = append(entries, map[string]any{
				"frame":       startFrame + i,
				"description": fmt.Sprintf("Placeholder observation for frame %d", startFrame+i),
			})
		}
		resp["visual_analysis"] = entries
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PickAgentRunner selects the runner backend, mirroring the ASR provider
// selection: AGENT_RUNNER=mock forces the mock, otherwise the OpenAI runner
// is used when API configuration is available.
func PickAgentRunner(cfg *config.Config) AgentRunner {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("AGENT_RUNNER")))
	if kind == "mock" {
		return MockAgentRunner{}
	}
	if cfg == nil || !cfg.HasValidAPI() {
		log.Printf("[runner] API configuration not found, using mock agent runner")
		return MockAgentRunner{}
	}
	return NewOpenAIAgentRunner(cfg)
}
