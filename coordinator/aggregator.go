package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"videoInterpret/config"
	"videoInterpret/core"
)

// Aggregate merges the per-batch results into one AggregatedResult. It is a
// pure fold with no I/O: re-aggregating the same inputs yields identical
// output. Results must arrive in batch order; batch order already reflects
// chronological frame order, so the general path only concatenates.
func Aggregate(results []core.BatchResult, full core.Transcription, userTask, workflowName string) core.AggregatedResult {
	agg := core.AggregatedResult{
		Workflow:          workflowName,
		Correlations:      make([]core.Correlation, 0),
		FullTranscription: full.Text,
		WorkerCount:       len(results),
	}

	failures := make(map[string]int)
	for _, r := range results {
		agg.TotalFramesAnalyzed += r.FramesAnalyzed
		agg.Correlations = append(agg.Correlations, r.Correlations...)
		if r.Fallback {
			failures[r.FailureTag]++
		} else {
			agg.Coverage.ResponsesReceived++
		}
	}
	agg.Coverage.FramesAnalyzed = agg.TotalFramesAnalyzed
	agg.Coverage.ResponsesExpected = len(results)

	if workflowName == config.ReconstructionWorkflow {
		var warnings []string
		agg.Features, warnings = mergeFeatures(results)
		agg.Warnings = append(agg.Warnings, warnings...)
		agg.WorkPlane = ResolveWorkPlane(full.Text)
		agg.PartName = derivePartName(full.Text)
		if len(agg.Features) == 0 && agg.Coverage.ResponsesReceived > 0 {
			agg.Warnings = append(agg.Warnings, "aggregation inconsistency: no features survived merging despite successful responses")
		}
	} else {
		agg.VisualTimeline = make([]core.VisualEntry, 0)
		for _, r := range results {
			agg.VisualTimeline = append(agg.VisualTimeline, r.VisualAnalysis...)
		}
	}

	agg.ExecutiveSummary = synthesizeSummary(results, userTask, failures)
	for _, tag := range []string{core.FailParseError, core.FailIncompleteCoverage, core.FailSchemaViolation, core.FailNoResponse} {
		if n := failures[tag]; n > 0 {
			agg.Warnings = append(agg.Warnings, fmt.Sprintf("%d worker(s) degraded to fallback: %s", n, tag))
		}
	}
	return agg
}

// featureKey is the conservative identity rule for deduplication: two
// features describe the same physical operation only when the operation
// kind, the primary primitive kind, and the source frame all match.
// Features revealed across batches from different frames stay distinct;
// this under-merges on purpose (a documented limitation) rather than
// guessing a cross-frame merge heuristic.
type featureKey struct {
	operation   string
	primitive   string
	sourceFrame int
}

func keyOf(f core.Feature) featureKey {
	primary := ""
	if len(f.Sketch.Primitives) > 0 {
		primary = f.Sketch.Primitives[0].Kind
	}
	return featureKey{operation: f.Operation, primitive: primary, sourceFrame: f.SourceFrame}
}

// mergeFeatures collects every feature across batches, tags it with its
// originating batch, merges duplicates, and orders the survivors by source
// frame (first appearance in batch order breaks ties). Conflicting values
// between duplicates are reported, never silently dropped.
func mergeFeatures(results []core.BatchResult) ([]core.Feature, []string) {
	type slot struct {
		feature core.Feature
		order   int
	}
	merged := make(map[featureKey]*slot)
	keys := make([]featureKey, 0)
	var warnings []string

	order := 0
	for _, r := range results {
		for _, f := range r.Features {
			tagged := cloneFeature(f)
			tagged.BatchID = r.BatchID
			key := keyOf(tagged)
			existing, ok := merged[key]
			if !ok {
				merged[key] = &slot{feature: tagged, order: order}
				keys = append(keys, key)
				order++
				continue
			}
			warnings = append(warnings, mergeInto(&existing.feature, tagged)...)
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := merged[keys[i]], merged[keys[j]]
		if a.feature.SourceFrame != b.feature.SourceFrame {
			return a.feature.SourceFrame < b.feature.SourceFrame
		}
		return a.order < b.order
	})

	features := make([]core.Feature, 0, len(keys))
	for _, k := range keys {
		features = append(features, merged[k].feature)
	}
	return features, warnings
}

// mergeInto folds a duplicate observation of the same physical feature into
// the kept one: missing primitives, dimensions and parameters are adopted,
// conflicting values are reported as warnings, and the stronger detection
// wins.
func mergeInto(kept *core.Feature, dup core.Feature) []string {
	var warnings []string

	for _, p := range dup.Sketch.Primitives {
		target := findPrimitive(&kept.Sketch, p.Kind)
		if target == nil {
			kept.Sketch.Primitives = append(kept.Sketch.Primitives, p)
			continue
		}
		for _, d := range p.Dimensions {
			if existing := findDimension(target, d.Name); existing == nil {
				target.Dimensions = append(target.Dimensions, d)
			} else if existing.Value != d.Value {
				warnings = append(warnings, fmt.Sprintf(
					"feature %s@frame %d: conflicting %s %s: %g (kept, batch %s) vs %g (batch %s)",
					kept.Operation, kept.SourceFrame, p.Kind, d.Name,
					existing.Value, kept.BatchID, d.Value, dup.BatchID))
			}
		}
	}

	for _, p := range dup.Parameters {
		if existing := findParameter(kept, p.Name); existing == nil {
			kept.Parameters = append(kept.Parameters, p)
		} else if existing.Value != p.Value || existing.Option != p.Option {
			warnings = append(warnings, fmt.Sprintf(
				"feature %s@frame %d: conflicting parameter %s between batches %s and %s",
				kept.Operation, kept.SourceFrame, p.Name, kept.BatchID, dup.BatchID))
		}
	}

	if dup.Detection.VisualConfidence > kept.Detection.VisualConfidence {
		kept.Detection.VisualConfidence = dup.Detection.VisualConfidence
	}
	if correlationRank(dup.Detection.AudioCorrelation) > correlationRank(kept.Detection.AudioCorrelation) {
		kept.Detection.AudioCorrelation = dup.Detection.AudioCorrelation
	}
	return warnings
}

func findPrimitive(s *core.Sketch, kind string) *core.Primitive {
	for i := range s.Primitives {
		if s.Primitives[i].Kind == kind {
			return &s.Primitives[i]
		}
	}
	return nil
}

func findDimension(p *core.Primitive, name string) *core.Dimension {
	for i := range p.Dimensions {
		if p.Dimensions[i].Name == name {
			return &p.Dimensions[i]
		}
	}
	return nil
}

func findParameter(f *core.Feature, name string) *core.Parameter {
	for i := range f.Parameters {
		if f.Parameters[i].Name == name {
			return &f.Parameters[i]
		}
	}
	return nil
}

func correlationRank(strength string) int {
	switch strength {
	case "strong":
		return 3
	case "medium":
		return 2
	case "weak":
		return 1
	default:
		return 0
	}
}

// cloneFeature deep-copies a feature so merging never mutates the caller's
// results slice; aggregation must stay idempotent.
func cloneFeature(f core.Feature) core.Feature {
	out := f
	out.Sketch.Primitives = make([]core.Primitive, len(f.Sketch.Primitives))
	for i, p := range f.Sketch.Primitives {
		cp := p
		cp.Dimensions = append([]core.Dimension(nil), p.Dimensions...)
		out.Sketch.Primitives[i] = cp
	}
	out.Parameters = append([]core.Parameter(nil), f.Parameters...)
	return out
}

// workPlaneRules is the ordered keyword table for work-plane resolution.
// Evaluated top to bottom; the first keyword found in the transcript wins.
var workPlaneRules = []struct {
	keyword string
	plane   string
}{
	{"frontal", "frontal"},
	{"superior", "superior"},
	{"lateral direita", "lateral_direita"},
	{"lateral esquerda", "lateral_esquerda"},
}

// DefaultWorkPlane is used when the transcript names no face.
const DefaultWorkPlane = "frontal"

// ResolveWorkPlane picks the single work plane for the whole part from the
// full transcript text.
func ResolveWorkPlane(transcript string) string {
	lower := strings.ToLower(transcript)
	for _, rule := range workPlaneRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.plane
		}
	}
	return DefaultWorkPlane
}

// partNameMarkers are transcript phrases that introduce the part's name,
// checked in order.
var partNameMarkers = []string{"peça chamada", "nome da peça é", "peça", "part called", "part named"}

// DefaultPartName is the placeholder when the transcript gives no name.
const DefaultPartName = "reconstructed_part"

func derivePartName(transcript string) string {
	lower := strings.ToLower(transcript)
	for _, marker := range partNameMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := strings.Fields(lower[idx+len(marker):])
		if len(rest) == 0 {
			continue
		}
		n := len(rest)
		if n > 2 {
			n = 2
		}
		name := strings.Join(rest[:n], "_")
		name = strings.Trim(name, ".,;:!?\"'")
		if name != "" {
			return name
		}
	}
	return DefaultPartName
}

// synthesizeSummary builds the executive summary from the per-batch
// summaries, in batch order, noting degraded batches.
func synthesizeSummary(results []core.BatchResult, userTask string, failures map[string]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Video Analysis Summary\n\n**Task**: %s\n", userTask)
	for _, r := range results {
		if r.Fallback {
			fmt.Fprintf(&b, "\n**%s**: no usable response (%s)\n", r.BatchID, r.FailureTag)
			continue
		}
		if strings.TrimSpace(r.Summary) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n**%s**: %s\n", r.BatchID, r.Summary)
	}
	if total := len(failures); total > 0 {
		degraded := 0
		for _, n := range failures {
			degraded += n
		}
		fmt.Fprintf(&b, "\n%d of %d batches degraded to fallback results.\n", degraded, len(results))
	}
	return b.String()
}
