package core

// FramesToTime maps an inclusive frame-index range to the time window it
// covers at the given sampling rate. The upper bound is (endFrame+1)/fps so
// the window includes the full duration represented by the last frame.
func FramesToTime(startFrame, endFrame int, fps float64) (float64, float64, error) {
	if fps <= 0 {
		return 0, 0, InvalidConfiguration("fps", "must be positive, got %g", fps)
	}
	return float64(startFrame) / fps, float64(endFrame+1) / fps, nil
}

// SegmentsInWindow selects the segments whose interval [Start, End)
// intersects [start, end). Any overlap counts, not containment. Input order
// is preserved, so a chronological input yields a chronological subset.
func SegmentsInWindow(segments []Segment, start, end float64) []Segment {
	relevant := make([]Segment, 0)
	for _, seg := range segments {
		if seg.Start < end && seg.End > start {
			relevant = append(relevant, seg)
		}
	}
	return relevant
}
