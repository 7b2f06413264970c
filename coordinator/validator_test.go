package coordinator

import (
	"fmt"
	"strings"
	"testing"

	"videoInterpret/config"
	"videoInterpret/core"
)

func testBatch(frameCount int) core.Batch {
	frames := makeFrames(frameCount, 1.0)
	return core.Batch{
		ID:         "batch_0",
		Frames:     frames,
		StartFrame: 0,
		EndFrame:   frameCount - 1,
		StartTime:  0,
		EndTime:    float64(frameCount),
	}
}

func wellFormedResponse(frameCount int) string {
	return fmt.Sprintf(`{
		"batch_id": "batch_0",
		"time_range": {"start": 0, "end": %d},
		"frames_analyzed": %d,
		"visual_analysis": [{"frame": 0, "description": "a desk"}],
		"audio_visual_correlations": [],
		"summary": "short clip of a desk"
	}`, frameCount, frameCount)
}

func TestValidateResponseSuccess(t *testing.T) {
	batch := testBatch(3)
	result := ValidateResponse(wellFormedResponse(3), batch, config.GenericWorkflow)
	if result.Fallback {
		t.Fatalf("expected success, got fallback %s", result.FailureTag)
	}
	if result.FramesAnalyzed != 3 {
		t.Errorf("expected frames_analyzed=3, got %d", result.FramesAnalyzed)
	}
	if result.Summary != "short clip of a desk" {
		t.Errorf("summary not preserved: %q", result.Summary)
	}
}

func TestValidateResponseFencedJSON(t *testing.T) {
	batch := testBatch(3)
	raw := "Here is my analysis:\n```json\n" + wellFormedResponse(3) + "\n```\n"
	result := ValidateResponse(raw, batch, config.GenericWorkflow)
	if result.Fallback {
		t.Fatalf("fenced JSON should validate, got fallback %s", result.FailureTag)
	}
}

func TestValidateResponseParseError(t *testing.T) {
	batch := testBatch(2)
	for _, raw := range []string{"", "not json at all", "{truncated", "<html>502</html>"} {
		result := ValidateResponse(raw, batch, config.GenericWorkflow)
		if !result.Fallback || result.FailureTag != core.FailParseError {
			t.Errorf("raw=%q: expected parse_error fallback, got %+v", raw, result)
		}
		if result.BatchID != batch.ID {
			t.Errorf("raw=%q: fallback lost batch identity", raw)
		}
		if result.FramesAnalyzed != 0 {
			t.Errorf("raw=%q: fallback must report zero frames analyzed", raw)
		}
	}
}

func TestValidateResponseRawExcerptTruncated(t *testing.T) {
	batch := testBatch(1)
	raw := strings.Repeat("x", 5000)
	result := ValidateResponse(raw, batch, config.GenericWorkflow)
	if len(result.RawExcerpt) > rawExcerptLimit+3 {
		t.Errorf("raw excerpt not truncated: %d bytes", len(result.RawExcerpt))
	}
}

func TestValidateResponseIncompleteCoverage(t *testing.T) {
	batch := testBatch(5)
	// claims 4 frames for a 5-frame batch: otherwise well-formed
	result := ValidateResponse(wellFormedResponse(4), batch, config.GenericWorkflow)
	if !result.Fallback || result.FailureTag != core.FailIncompleteCoverage {
		t.Fatalf("expected incomplete_coverage fallback, got %+v", result)
	}
}

func TestValidateResponseMissingFields(t *testing.T) {
	batch := testBatch(2)
	raw := `{"batch_id": "batch_0", "summary": "no coverage fields"}`
	result := ValidateResponse(raw, batch, config.GenericWorkflow)
	if !result.Fallback || result.FailureTag != core.FailSchemaViolation {
		t.Fatalf("expected schema_violation fallback, got %+v", result)
	}
}

func TestValidateResponseGeometrySchema(t *testing.T) {
	batch := testBatch(2)

	valid := `{
		"batch_id": "batch_0",
		"time_range": {"start": 0, "end": 2},
		"frames_analyzed": 2,
		"features": [{
			"operation": "extrude",
			"sketch": {"plane": "frontal", "primitives": [
				{"kind": "circle", "dimensions": [
					{"name": "diameter", "value": 50, "unit": "mm", "provenance": {"source": "audio", "timestamp": 1.0}}
				]}
			]},
			"detection": {"visual_confidence": 0.9, "audio_correlation": "strong"},
			"source_frame": 0
		}],
		"summary": "one extrusion"
	}`
	result := ValidateResponse(valid, batch, config.ReconstructionWorkflow)
	if result.Fallback {
		t.Fatalf("valid geometry response rejected: %s", result.FailureTag)
	}
	if len(result.Features) != 1 || result.Features[0].Operation != "extrude" {
		t.Errorf("features not preserved: %+v", result.Features)
	}

	// unknown operation kind
	badOp := strings.Replace(valid, `"extrude"`, `"drill"`, 1)
	result = ValidateResponse(badOp, batch, config.ReconstructionWorkflow)
	if !result.Fallback || result.FailureTag != core.FailSchemaViolation {
		t.Errorf("unknown operation: expected schema_violation, got %+v", result)
	}

	// no dimensioned primitive
	noDims := strings.Replace(valid,
		`{"name": "diameter", "value": 50, "unit": "mm", "provenance": {"source": "audio", "timestamp": 1.0}}`,
		``, 1)
	result = ValidateResponse(noDims, batch, config.ReconstructionWorkflow)
	if !result.Fallback || result.FailureTag != core.FailSchemaViolation {
		t.Errorf("missing dimensions: expected schema_violation, got %+v", result)
	}
}

func TestValidateResponseVisualEntryNeedsDescription(t *testing.T) {
	batch := testBatch(1)
	raw := `{
		"batch_id": "batch_0",
		"time_range": {"start": 0, "end": 1},
		"frames_analyzed": 1,
		"visual_analysis": [{"frame": 0, "description": "   "}],
		"summary": "s"
	}`
	result := ValidateResponse(raw, batch, config.GenericWorkflow)
	if !result.Fallback || result.FailureTag != core.FailSchemaViolation {
		t.Fatalf("blank description: expected schema_violation, got %+v", result)
	}
}
