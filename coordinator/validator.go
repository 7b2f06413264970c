package coordinator

import (
	"encoding/json"
	"strings"

	"videoInterpret/config"
	"videoInterpret/core"
)

// rawExcerptLimit bounds how much of a malformed response is kept for
// diagnostics.
const rawExcerptLimit = 240

// agentResponse is the wire shape of a worker's JSON output. Pointer fields
// distinguish "absent" from zero values during the required-field check.
type agentResponse struct {
	BatchID        *string            `json:"batch_id"`
	TimeRange      *core.TimeRange    `json:"time_range"`
	FramesAnalyzed *int               `json:"frames_analyzed"`
	VisualAnalysis []core.VisualEntry `json:"visual_analysis"`
	Features       []core.Feature     `json:"features"`
	Correlations   []core.Correlation `json:"audio_visual_correlations"`
	Summary        string             `json:"summary"`
}

// ValidateResponse parses and structurally checks one worker's raw text.
// It never fails hard: any violation degrades to a fallback result carrying
// the batch identity, so the aggregator's input is always complete.
func ValidateResponse(raw string, batch core.Batch, workflowName string) core.BatchResult {
	body, ok := extractJSON(raw)
	if !ok {
		return NewFallback(batch, core.FailParseError, raw)
	}

	var resp agentResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return NewFallback(batch, core.FailParseError, raw)
	}

	if resp.BatchID == nil || resp.TimeRange == nil || resp.FramesAnalyzed == nil {
		return NewFallback(batch, core.FailSchemaViolation, raw)
	}
	if *resp.FramesAnalyzed != batch.FrameCount() {
		return NewFallback(batch, core.FailIncompleteCoverage, raw)
	}

	if workflowName == config.ReconstructionWorkflow {
		for _, f := range resp.Features {
			if !core.OperationKinds[f.Operation] || !hasDimensionedPrimitive(f) {
				return NewFallback(batch, core.FailSchemaViolation, raw)
			}
		}
	} else {
		for _, v := range resp.VisualAnalysis {
			if v.Frame < 0 || strings.TrimSpace(v.Description) == "" {
				return NewFallback(batch, core.FailSchemaViolation, raw)
			}
		}
	}

	return core.BatchResult{
		BatchID:        *resp.BatchID,
		TimeRange:      *resp.TimeRange,
		FramesAnalyzed: *resp.FramesAnalyzed,
		VisualAnalysis: resp.VisualAnalysis,
		Features:       resp.Features,
		Correlations:   resp.Correlations,
		Summary:        resp.Summary,
	}
}

// NewFallback synthesizes the placeholder result for a missing or invalid
// worker response. FramesAnalyzed stays zero so the coverage check reports
// the shortfall.
func NewFallback(batch core.Batch, tag, raw string) core.BatchResult {
	excerpt := strings.TrimSpace(raw)
	if len(excerpt) > rawExcerptLimit {
		excerpt = excerpt[:rawExcerptLimit] + "..."
	}
	return core.BatchResult{
		BatchID:    batch.ID,
		TimeRange:  core.TimeRange{Start: batch.StartTime, End: batch.EndTime},
		Fallback:   true,
		FailureTag: tag,
		RawExcerpt: excerpt,
	}
}

// extractJSON locates the JSON object in a worker's free-form reply.
// Workers are asked for bare JSON but often wrap it in Markdown fences or
// prose, so the parser takes the outermost brace pair as the body.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return s, true
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	body := s[start : end+1]
	if !json.Valid([]byte(body)) {
		return "", false
	}
	return body, true
}

func hasDimensionedPrimitive(f core.Feature) bool {
	for _, p := range f.Sketch.Primitives {
		if p.Kind != "" && len(p.Dimensions) > 0 {
			return true
		}
	}
	return false
}
