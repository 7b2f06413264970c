// Package coordinator implements the coordination layer of the video
// interpretation pipeline: partitioning frames into worker batches,
// compiling per-batch prompts, validating untrusted worker output, and
// merging the per-batch fragments into one consistent result.
package coordinator

import (
	"fmt"

	"videoInterpret/core"
)

// DivideIntoBatches partitions frames into contiguous, gap-free batches,
// one per worker. Batch size is ceil(len(frames)/workerCount) so all but
// possibly the last batch are equal-sized and the last absorbs the
// remainder. When workerCount exceeds the frame count it is clamped to one
// frame per batch; empty batches are never produced.
//
// Invariant: the union of the returned batches' frame slices is exactly the
// input sequence, pairwise disjoint, in original order.
func DivideIntoBatches(frames []core.Frame, workerCount int, fps float64, segments []core.Segment) ([]core.Batch, error) {
	if len(frames) == 0 {
		return nil, core.InvalidConfiguration("frames", "must not be empty")
	}
	if workerCount <= 0 {
		return nil, core.InvalidConfiguration("worker_count", "must be >= 1, got %d", workerCount)
	}
	if fps <= 0 {
		return nil, core.InvalidConfiguration("fps", "must be positive, got %g", fps)
	}

	if workerCount > len(frames) {
		workerCount = len(frames)
	}
	batchSize := (len(frames) + workerCount - 1) / workerCount

	batches := make([]core.Batch, 0, workerCount)
	for start := 0; start < len(frames); start += batchSize {
		end := start + batchSize
		if end > len(frames) {
			end = len(frames)
		}
		slice := frames[start:end]

		startFrame := slice[0].Index
		endFrame := slice[len(slice)-1].Index
		startTime, endTime, err := core.FramesToTime(startFrame, endFrame, fps)
		if err != nil {
			return nil, err
		}

		batches = append(batches, core.Batch{
			ID:         fmt.Sprintf("batch_%d", len(batches)),
			Frames:     slice,
			StartFrame: startFrame,
			EndFrame:   endFrame,
			StartTime:  startTime,
			EndTime:    endTime,
			Segments:   core.SegmentsInWindow(segments, startTime, endTime),
		})
	}
	return batches, nil
}

// VerifyPlan asserts the complete-coverage invariant over a plan. The
// driver calls this before paying for any dispatch.
func VerifyPlan(batches []core.Batch, frames []core.Frame) error {
	total := 0
	next := 0
	for _, b := range batches {
		if b.FrameCount() == 0 {
			return core.InvalidConfiguration("plan", "batch %s is empty", b.ID)
		}
		for _, f := range b.Frames {
			if next < len(frames) && frames[next].Index != f.Index {
				return core.InvalidConfiguration("plan", "batch %s breaks frame order at index %d", b.ID, f.Index)
			}
			next++
		}
		total += b.FrameCount()
	}
	if total != len(frames) {
		return core.InvalidConfiguration("plan", "covers %d of %d frames", total, len(frames))
	}
	return nil
}
