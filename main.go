package main

import (
	"log"
	"net/http"
	"os"

	"videoInterpret/config"
	"videoInterpret/coordinator"
	"videoInterpret/processors"
	"videoInterpret/storage"
)

var (
	cfg       *config.Config
	workflows *config.WorkflowRegistry
	archive   storage.RunArchive
	runner    coordinator.AgentRunner
	asr       processors.ASRProvider
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(dataRoot(), 0755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	workflows, err = config.LoadWorkflows(cfg.WorkflowsDir)
	if err != nil {
		log.Fatalf("load workflows: %v", err)
	}
	log.Printf("Workflows loaded: %v", workflows.Names())

	archive = storage.NewRunArchive(cfg)
	log.Printf("Run archive initialized: %s", cfg.StoreBackend)

	runner = coordinator.PickAgentRunner(cfg)
	asr = processors.PickASRProvider(cfg)

	http.HandleFunc("/analyze-video", analyzeVideoHandler)
	http.HandleFunc("/plan-batches", planBatchesHandler)
	http.HandleFunc("/validate-response", validateResponseHandler)
	http.HandleFunc("/search-runs", searchRunsHandler)
	http.HandleFunc("/workflows", workflowsHandler)
	http.HandleFunc("/health", healthHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Printf("Server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
