package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"videoInterpret/config"
	"videoInterpret/coordinator"
	"videoInterpret/core"
	"videoInterpret/processors"
	"videoInterpret/storage"
)

// AnalyzeRequest is the full-pipeline entry point: one video, one task.
type AnalyzeRequest struct {
	VideoPath         string `json:"video_path"`
	TaskDescription   string `json:"task_description"`
	Workflow          string `json:"workflow,omitempty"` // empty selects by trigger keywords
	Language          string `json:"language,omitempty"`
	SkipTranscription bool   `json:"skip_transcription,omitempty"`
}

// AnalyzeResponse wraps the aggregated result with run bookkeeping.
type AnalyzeResponse struct {
	RunID      string                 `json:"run_id"`
	Workflow   string                 `json:"workflow"`
	ResultPath string                 `json:"result_path"`
	Result     *core.AggregatedResult `json:"result"`
}

func analyzeVideoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := config.ValidateTaskDescription(req.TaskDescription); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Language != "" {
		if err := config.ValidateLanguage(req.Language); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	wfName := req.Workflow
	if wfName == "" {
		wfName = workflows.Detect(req.TaskDescription)
	}
	wf, ok := workflows.Get(wfName)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown workflow %q", wfName)})
		return
	}

	runID := newRunID()
	jobDir := filepath.Join(dataRoot(), runID)
	log.Printf("[analyze] run %s: workflow=%s video=%s", runID, wf.Name, req.VideoPath)

	pre, err := processors.PreprocessVideo(req.VideoPath, jobDir, wf.Config.FPS)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsInvalidConfiguration(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	var transcription core.Transcription
	if !req.SkipTranscription {
		language := req.Language
		if language == "" {
			language = wf.Config.Language
		}
		transcription, err = asr.Transcribe(r.Context(), pre.AudioPath, language)
		if err != nil {
			// a silent or failed track degrades to vision-only analysis
			log.Printf("[analyze] run %s: transcription failed (%v), continuing without audio", runID, err)
			transcription = core.Transcription{}
		}
	}

	driver := &coordinator.Driver{Runner: runner}
	result, err := driver.Run(r.Context(), coordinator.RunInput{
		Frames:        pre.Frames,
		Transcription: transcription,
		Workflow:      wf,
		UserTask:      req.TaskDescription,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsInvalidConfiguration(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	resultPath := filepath.Join(jobDir, "result.json")
	if err := os.WriteFile(resultPath, mustJSON(result), 0644); err != nil {
		log.Printf("[analyze] run %s: write result: %v", runID, err)
	}

	rec := storage.RunRecord{
		RunID:    runID,
		Task:     req.TaskDescription,
		Workflow: wf.Name,
		PartName: result.PartName,
		Summary:  result.ExecutiveSummary,
		SavedAt:  time.Now(),
	}
	if err := archive.SaveRun(r.Context(), rec); err != nil {
		log.Printf("[analyze] run %s: archive save: %v", runID, err)
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		RunID:      runID,
		Workflow:   wf.Name,
		ResultPath: resultPath,
		Result:     result,
	})
}

// PlanRequest exposes batch planning on its own, for inspecting how a run
// would divide before paying for it.
type PlanRequest struct {
	FrameCount int            `json:"frame_count"`
	Workers    int            `json:"workers"`
	FPS        float64        `json:"fps"`
	Segments   []core.Segment `json:"segments,omitempty"`
}

func planBatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.FrameCount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "frame_count must be positive"})
		return
	}

	frames := make([]core.Frame, req.FrameCount)
	for i := range frames {
		frames[i] = core.Frame{Index: i, TimestampSec: float64(i) / req.FPS}
	}
	batches, err := coordinator.DivideIntoBatches(frames, req.Workers, req.FPS, req.Segments)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsInvalidConfiguration(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches, "count": len(batches)})
}

// ValidateRequest checks one raw worker response against a batch, exposing
// the validator for debugging malformed agent output.
type ValidateRequest struct {
	Raw      string     `json:"raw"`
	Batch    core.Batch `json:"batch"`
	Workflow string     `json:"workflow"`
}

func validateResponseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Workflow == "" {
		req.Workflow = config.GenericWorkflow
	}
	result := coordinator.ValidateResponse(req.Raw, req.Batch, req.Workflow)
	writeJSON(w, http.StatusOK, result)
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func searchRunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}
	hits, err := archive.SearchRuns(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "hits": hits})
}

func workflowsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows.Names()})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"store":     cfg.StoreBackend,
		"workflows": workflows.Names(),
		"time":      time.Now().Format(time.RFC3339),
	})
}
