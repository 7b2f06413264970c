package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"videoInterpret/config"
	"videoInterpret/core"
)

// Run states, in order. The driver moves through them linearly; there are
// no back edges.
const (
	StatePlanned    = "PLANNED"
	StateDispatched = "DISPATCHED"
	StateValidated  = "VALIDATED"
	StateAggregated = "AGGREGATED"
)

// Driver orchestrates one run: plan, compile, dispatch, validate,
// aggregate. It holds no mutable state across batches during dispatch;
// each batch is processed independently and joined only at aggregation.
type Driver struct {
	Runner AgentRunner
}

// RunInput carries everything one run needs.
type RunInput struct {
	Frames        []core.Frame
	Transcription core.Transcription
	Workflow      config.Workflow
	UserTask      string
}

// Run executes the full coordination sequence. Configuration problems fail
// fast before any dispatch; worker failures degrade to fallbacks and only
// surface in the result's coverage and warnings.
func (d *Driver) Run(ctx context.Context, in RunInput) (*core.AggregatedResult, error) {
	if d.Runner == nil {
		return nil, core.InvalidConfiguration("runner", "agent runner is required")
	}
	if err := in.Workflow.Validate(); err != nil {
		return nil, err
	}

	// PLANNED: the plan must satisfy the coverage invariant before any
	// external call is paid for.
	batches, err := DivideIntoBatches(in.Frames, in.Workflow.Config.Agents, in.Workflow.Config.FPS, in.Transcription.Segments)
	if err != nil {
		return nil, err
	}
	if err := VerifyPlan(batches, in.Frames); err != nil {
		return nil, err
	}
	log.Printf("[driver] %s: planned %d batches over %d frames", StatePlanned, len(batches), len(in.Frames))

	// Prompts are compiled up front so a bad workflow config also fails
	// before dispatch.
	prompts := make([]string, len(batches))
	for i, b := range batches {
		prompt, err := GeneratePrompt(b, in.Workflow, in.UserTask)
		if err != nil {
			return nil, err
		}
		prompts[i] = prompt
	}

	// DISPATCHED: fan out all batches concurrently. Each goroutine owns
	// its own slot in the outcome slices, so no locking is needed; the
	// WaitGroup is the full barrier the aggregation step requires.
	responses := make([]string, len(batches))
	dispatchErrs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], dispatchErrs[i] = d.Runner.Submit(ctx, TaskRequest{
				SubagentKind: "general-purpose",
				Description:  fmt.Sprintf("Analyze video frames %s", batches[i].ID),
				Prompt:       prompts[i],
				Model:        in.Workflow.Config.Model,
			})
		}(i)
	}
	wg.Wait()
	log.Printf("[driver] %s: %d batches dispatched", StateDispatched, len(batches))

	// VALIDATED: exactly one result per batch. A failed or empty dispatch
	// becomes a no_response fallback, never a hole.
	results := make([]core.BatchResult, len(batches))
	for i, b := range batches {
		switch {
		case dispatchErrs[i] != nil:
			log.Printf("[driver] %s: no response (%v)", b.ID, dispatchErrs[i])
			results[i] = NewFallback(b, core.FailNoResponse, "")
		case strings.TrimSpace(responses[i]) == "":
			results[i] = NewFallback(b, core.FailNoResponse, "")
		default:
			results[i] = ValidateResponse(responses[i], b, in.Workflow.Name)
		}
		if results[i].BatchID != b.ID {
			// a worker answered for the wrong batch; keep the slot
			// consistent rather than trusting the stray identity
			results[i] = NewFallback(b, core.FailSchemaViolation, responses[i])
		}
	}
	log.Printf("[driver] %s: %d results (1:1 with batches)", StateValidated, len(results))

	// AGGREGATED: terminal.
	agg := Aggregate(results, in.Transcription, in.UserTask, in.Workflow.Name)
	agg.Coverage.FramesExpected = len(in.Frames)
	if !agg.Coverage.Complete() {
		agg.Warnings = append(agg.Warnings, fmt.Sprintf(
			"coverage shortfall: %d of %d frames analyzed, %d of %d responses usable",
			agg.Coverage.FramesAnalyzed, agg.Coverage.FramesExpected,
			agg.Coverage.ResponsesReceived, agg.Coverage.ResponsesExpected))
	}
	log.Printf("[driver] %s: %d/%d frames analyzed by %d workers",
		StateAggregated, agg.Coverage.FramesAnalyzed, agg.Coverage.FramesExpected, agg.WorkerCount)
	return &agg, nil
}
