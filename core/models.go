package core

// ========== Pipeline data structures ==========

// Frame is one sampled instant of the source video. Index is zero-based in
// extraction order; the implicit timestamp is Index / fps.
type Frame struct {
	Index        int     `json:"index"`
	Path         string  `json:"path"`
	TimestampSec float64 `json:"timestamp_sec"`
}

// Segment is a time-coded slice of the speech transcription, [Start, End).
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the full output of the transcription collaborator.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

// TimeRange is a half-open interval [Start, End) in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Batch is one worker's slice of the run: a contiguous frame range plus its
// derived time window and the transcript segments overlapping that window.
type Batch struct {
	ID         string    `json:"batch_id"`
	Frames     []Frame   `json:"frames"`
	StartFrame int       `json:"start_frame"`
	EndFrame   int       `json:"end_frame"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	Segments   []Segment `json:"audio_segments"`
}

// FrameCount returns the number of frames assigned to the batch.
func (b Batch) FrameCount() int { return len(b.Frames) }

// ========== Worker result structures ==========

// VisualEntry is one per-frame observation in the flat visual-analysis shape.
type VisualEntry struct {
	Frame       int      `json:"frame"`
	Timestamp   float64  `json:"timestamp,omitempty"`
	Description string   `json:"description"`
	Objects     []string `json:"objects,omitempty"`
	Text        []string `json:"text,omitempty"`
	Changes     string   `json:"changes,omitempty"`
}

// Correlation links something heard to something seen at one timestamp.
type Correlation struct {
	Timestamp float64 `json:"timestamp"`
	Frame     int     `json:"frame,omitempty"`
	Audio     string  `json:"audio"`
	Visual    string  `json:"visual"`
	Strength  string  `json:"strength,omitempty"`
}

// Provenance records where a dimension or parameter value came from:
// spoken in the audio (with the timestamp it was heard at) or inferred
// visually by the worker.
type Provenance struct {
	Source    string  `json:"source"` // "audio" or "inferred"
	Timestamp float64 `json:"timestamp,omitempty"`
}

// Dimension is one measured value of a geometric primitive.
type Dimension struct {
	Name       string     `json:"name"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// Primitive is one 2-D sketch element (circle, rectangle, line, arc...).
type Primitive struct {
	Kind       string      `json:"kind"`
	Dimensions []Dimension `json:"dimensions"`
}

// Sketch is the 2-D profile a feature operates on.
type Sketch struct {
	Plane      string      `json:"plane"`
	Primitives []Primitive `json:"primitives"`
}

// Parameter is one operation parameter (extrusion distance, direction,
// boolean-combine mode). Numeric values use Value, enumerated ones Option.
type Parameter struct {
	Name       string     `json:"name"`
	Value      float64    `json:"value,omitempty"`
	Option     string     `json:"option,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// Detection carries the worker's confidence in a feature.
type Detection struct {
	VisualConfidence float64 `json:"visual_confidence"`
	AudioCorrelation string  `json:"audio_correlation"` // strong, medium, weak, none
}

// Feature is a candidate 3-D construction operation reported by a worker.
// The same physical feature may be reported by several batches at different
// levels of completeness; the aggregator decides identity and merges.
type Feature struct {
	Operation   string      `json:"operation"` // extrude, cut, revolve, fillet, chamfer
	Sketch      Sketch      `json:"sketch"`
	Parameters  []Parameter `json:"parameters,omitempty"`
	Detection   Detection   `json:"detection"`
	SourceFrame int         `json:"source_frame"`
	BatchID     string      `json:"batch_id,omitempty"` // filled by the aggregator for traceability
}

// OperationKinds is the closed set of recognized construction operations.
var OperationKinds = map[string]bool{
	"extrude": true,
	"cut":     true,
	"revolve": true,
	"fillet":  true,
	"chamfer": true,
}

// BatchResult is one worker's validated output, or the fallback synthesized
// for it. Fallback results keep the batch identity so aggregation never sees
// a hole; their FramesAnalyzed is zero so coverage checks report the
// shortfall.
type BatchResult struct {
	BatchID        string        `json:"batch_id"`
	TimeRange      TimeRange     `json:"time_range"`
	FramesAnalyzed int           `json:"frames_analyzed"`
	VisualAnalysis []VisualEntry `json:"visual_analysis,omitempty"`
	Features       []Feature     `json:"features,omitempty"`
	Correlations   []Correlation `json:"audio_visual_correlations,omitempty"`
	Summary        string        `json:"summary"`
	Fallback       bool          `json:"fallback,omitempty"`
	FailureTag     string        `json:"failure_tag,omitempty"`
	RawExcerpt     string        `json:"raw_excerpt,omitempty"`
}

// Coverage reports how much of the requested work actually happened.
type Coverage struct {
	FramesExpected    int `json:"frames_expected"`
	FramesAnalyzed    int `json:"frames_analyzed"`
	ResponsesExpected int `json:"responses_expected"`
	ResponsesReceived int `json:"responses_received"`
}

// Complete reports whether every requested frame was analyzed.
func (c Coverage) Complete() bool {
	return c.FramesAnalyzed == c.FramesExpected && c.ResponsesReceived == c.ResponsesExpected
}

// AggregatedResult is the terminal per-run artifact.
type AggregatedResult struct {
	Workflow            string        `json:"workflow"`
	ExecutiveSummary    string        `json:"executive_summary"`
	VisualTimeline      []VisualEntry `json:"visual_timeline,omitempty"`
	Features            []Feature     `json:"features,omitempty"`
	WorkPlane           string        `json:"work_plane,omitempty"`
	PartName            string        `json:"part_name,omitempty"`
	Correlations        []Correlation `json:"correlations"`
	FullTranscription   string        `json:"full_transcription"`
	TotalFramesAnalyzed int           `json:"total_frames_analyzed"`
	WorkerCount         int           `json:"num_workers"`
	Coverage            Coverage      `json:"coverage"`
	Warnings            []string      `json:"warnings,omitempty"`
}
