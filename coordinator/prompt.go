package coordinator

import (
	"fmt"
	"strings"

	"videoInterpret/config"
	"videoInterpret/core"
)

// focusBlocks is the process-wide instruction registry, keyed by workflow
// name. It is populated once at package load and never mutated.
var focusBlocks = map[string]string{
	config.ReconstructionWorkflow: `## Focus: geometric reconstruction
Identify every modeling operation shown on screen. For each one report the
operation kind, the 2D sketch (work plane and primitives with dimensions),
and the operation parameters. Tag every dimension value with its provenance:
"audio" with the timestamp when the narrator spoke the value, or "inferred"
when you estimated it from the frames. Prefer spoken values over estimates.`,

	"ui-replication": `## Focus: interface replication
Describe every visible UI element (buttons, menus, input fields, dialogs)
with its position and state, and note each interaction the cursor performs.
Capture any on-screen text verbatim.`,

	config.GenericWorkflow: `## Focus: general analysis
Describe what each frame shows, the objects and text visible in it, and any
notable change from the previous frame.`,
}

// geometrySchema is the semantic-geometry output shape requested from
// reconstruction workers.
const geometrySchema = `Return ONLY a JSON object with this exact shape:
{
  "batch_id": "<batch id from above>",
  "time_range": {"start": <seconds>, "end": <seconds>},
  "frames_analyzed": <number of frames listed above>,
  "features": [
    {
      "operation": "extrude|cut|revolve|fillet|chamfer",
      "sketch": {
        "plane": "<work plane>",
        "primitives": [
          {"kind": "circle|rectangle|line|arc|polygon",
           "dimensions": [{"name": "diameter", "value": 50, "unit": "mm",
                           "provenance": {"source": "audio", "timestamp": 12.5}}]}
        ]
      },
      "parameters": [{"name": "distance", "value": 100, "unit": "mm",
                      "provenance": {"source": "inferred"}}],
      "detection": {"visual_confidence": 0.9, "audio_correlation": "strong"},
      "source_frame": <frame index the feature was first seen in>
    }
  ],
  "audio_visual_correlations": [
    {"timestamp": <seconds>, "frame": <index>, "audio": "...", "visual": "...", "strength": "strong"}
  ],
  "summary": "<one paragraph>"
}`

// visualSchema is the flat visual-analysis output shape for every other
// workflow.
const visualSchema = `Return ONLY a JSON object with this exact shape:
{
  "batch_id": "<batch id from above>",
  "time_range": {"start": <seconds>, "end": <seconds>},
  "frames_analyzed": <number of frames listed above>,
  "visual_analysis": [
    {"frame": <index>, "timestamp": <seconds>, "description": "...",
     "objects": ["..."], "text": ["..."], "changes": "..."}
  ],
  "audio_visual_correlations": [
    {"timestamp": <seconds>, "frame": <index>, "audio": "...", "visual": "...", "strength": "medium"}
  ],
  "summary": "<one paragraph>"
}`

// GeneratePrompt renders the worker-facing instruction document for one
// batch. It is a pure function of its inputs: every frame locator in the
// batch is embedded (never a subset), along with the batch's transcript
// segments, the user task, and the workflow's focus guidance.
func GeneratePrompt(batch core.Batch, workflow config.Workflow, userTask string) (string, error) {
	if strings.TrimSpace(workflow.Name) == "" {
		return "", core.InvalidConfiguration("workflow.name", "must not be empty")
	}
	if len(batch.Frames) == 0 {
		return "", core.InvalidConfiguration("batch", "batch %s has no frames", batch.ID)
	}
	if err := config.ValidateTaskDescription(userTask); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Video Analysis Worker\n\n")
	fmt.Fprintf(&b, "Workflow: %s\n", workflow.Name)
	fmt.Fprintf(&b, "Batch ID: %s\n", batch.ID)
	fmt.Fprintf(&b, "Frames: %d-%d (%d total)\n", batch.StartFrame, batch.EndFrame, batch.FrameCount())
	fmt.Fprintf(&b, "Time window: %.1fs - %.1fs\n\n", batch.StartTime, batch.EndTime)

	b.WriteString("## Frames to analyze\n")
	for _, frame := range batch.Frames {
		fmt.Fprintf(&b, "- [%d] %s\n", frame.Index, frame.Path)
	}

	b.WriteString("\n## Audio transcript for this window\n")
	if len(batch.Segments) == 0 {
		b.WriteString("No audio in this time range\n")
	} else {
		for _, seg := range batch.Segments {
			fmt.Fprintf(&b, "**%.1fs - %.1fs**: %s\n", seg.Start, seg.End, seg.Text)
		}
	}

	fmt.Fprintf(&b, "\n## Task\n%s\n", userTask)

	if block, ok := focusBlocks[workflow.Name]; ok {
		fmt.Fprintf(&b, "\n%s\n", block)
	}
	if extra := strings.TrimSpace(workflow.Config.FocusInstructions); extra != "" {
		fmt.Fprintf(&b, "\n%s\n", extra)
	}
	if workflow.Config.AudioPriority != "" {
		fmt.Fprintf(&b, "\nAudio priority: %s\n", workflow.Config.AudioPriority)
	}

	b.WriteString("\n## Output\n")
	if workflow.Name == config.ReconstructionWorkflow {
		b.WriteString(geometrySchema)
	} else {
		b.WriteString(visualSchema)
	}
	b.WriteString("\n\nAnalyze every listed frame. frames_analyzed must equal the number of frames listed above.\n")

	return b.String(), nil
}
