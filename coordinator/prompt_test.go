package coordinator

import (
	"strings"
	"testing"

	"videoInterpret/config"
	"videoInterpret/core"
)

func testWorkflow(name string) config.Workflow {
	return config.Workflow{
		Name: name,
		Config: config.WorkflowConfig{
			FPS:           1.0,
			Agents:        2,
			AudioPriority: "high",
		},
	}
}

func TestGeneratePromptEmbedsAllFrames(t *testing.T) {
	frames := makeFrames(6, 1.0)
	batches, err := DivideIntoBatches(frames, 2, 1.0, []core.Segment{{Start: 0, End: 2, Text: "fala inicial"}})
	if err != nil {
		t.Fatalf("DivideIntoBatches failed: %v", err)
	}

	prompt, err := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "describe the recording")
	if err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}

	for _, frame := range batches[0].Frames {
		if !strings.Contains(prompt, frame.Path) {
			t.Errorf("prompt missing frame locator %s", frame.Path)
		}
	}
	if !strings.Contains(prompt, "fala inicial") {
		t.Error("prompt missing transcript segment text")
	}
	if !strings.Contains(prompt, "0.0s - 2.0s") {
		t.Error("prompt missing segment timestamps")
	}
	if !strings.Contains(prompt, "describe the recording") {
		t.Error("prompt missing user task")
	}
	if !strings.Contains(prompt, batches[0].ID) {
		t.Error("prompt missing batch id")
	}
}

func TestGeneratePromptSchemaVariants(t *testing.T) {
	frames := makeFrames(2, 1.0)
	batches, _ := DivideIntoBatches(frames, 1, 1.0, nil)

	geo, err := GeneratePrompt(batches[0], testWorkflow(config.ReconstructionWorkflow), "reconstruct the part")
	if err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}
	if !strings.Contains(geo, `"features"`) || !strings.Contains(geo, `"sketch"`) {
		t.Error("reconstruction prompt does not request the semantic-geometry schema")
	}

	flat, err := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "describe the video")
	if err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}
	if !strings.Contains(flat, `"visual_analysis"`) {
		t.Error("generic prompt does not request the visual-analysis schema")
	}
	if strings.Contains(flat, `"sketch"`) {
		t.Error("generic prompt leaked the geometry schema")
	}
}

func TestGeneratePromptNoAudio(t *testing.T) {
	frames := makeFrames(2, 1.0)
	batches, _ := DivideIntoBatches(frames, 1, 1.0, nil)

	prompt, err := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "describe the video")
	if err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "No audio in this time range") {
		t.Error("prompt missing the empty-audio marker")
	}
}

func TestGeneratePromptDeterministic(t *testing.T) {
	frames := makeFrames(4, 2.0)
	batches, _ := DivideIntoBatches(frames, 2, 2.0, []core.Segment{{Start: 0, End: 1, Text: "ola"}})

	first, err := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "describe the video")
	if err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}
	second, _ := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "describe the video")
	if first != second {
		t.Error("GeneratePrompt is not deterministic")
	}
}

func TestGeneratePromptInvalidInput(t *testing.T) {
	frames := makeFrames(2, 1.0)
	batches, _ := DivideIntoBatches(frames, 1, 1.0, nil)

	if _, err := GeneratePrompt(batches[0], config.Workflow{}, "describe the video"); !core.IsInvalidConfiguration(err) {
		t.Errorf("missing workflow name: expected InvalidConfigurationError, got %v", err)
	}
	if _, err := GeneratePrompt(batches[0], testWorkflow(config.GenericWorkflow), "ab"); !core.IsInvalidConfiguration(err) {
		t.Errorf("short task: expected InvalidConfigurationError, got %v", err)
	}
	if _, err := GeneratePrompt(core.Batch{ID: "batch_0"}, testWorkflow(config.GenericWorkflow), "describe the video"); !core.IsInvalidConfiguration(err) {
		t.Errorf("empty batch: expected InvalidConfigurationError, got %v", err)
	}
}
