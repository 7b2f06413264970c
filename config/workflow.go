package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"videoInterpret/core"
)

// GenericWorkflow is the fallback when no trigger keyword matches.
const GenericWorkflow = "generic-analysis"

// ReconstructionWorkflow is the one workflow with the semantic-geometry
// output schema.
const ReconstructionWorkflow = "geometric-reconstruction"

// Workflow is one named analysis configuration loaded from a YAML file.
type Workflow struct {
	Name     string         `yaml:"name" json:"name"`
	Config   WorkflowConfig `yaml:"config" json:"config"`
	Triggers Triggers       `yaml:"triggers" json:"triggers"`
}

// WorkflowConfig is the tunable part of a workflow. The coordination layer
// only reads FPS and Agents structurally; the rest passes through opaquely
// into the prompt compiler and the dispatch runtime.
type WorkflowConfig struct {
	FPS               float64 `yaml:"fps" json:"fps"`
	Agents            int     `yaml:"agents" json:"agents"`
	Model             string  `yaml:"model" json:"model"`
	FocusInstructions string  `yaml:"focus_instructions" json:"focus_instructions"`
	AudioPriority     string  `yaml:"audio_priority" json:"audio_priority"`
	Language          string  `yaml:"language" json:"language"`
}

// Triggers holds the keyword list used for workflow detection.
type Triggers struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
}

const (
	minFPS    = 0.1
	maxFPS    = 10.0
	minAgents = 1
	maxAgents = 20
)

// Validate checks the structural fields the coordination layer depends on.
func (w Workflow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return core.InvalidConfiguration("workflow.name", "must not be empty")
	}
	if w.Config.FPS < minFPS || w.Config.FPS > maxFPS {
		return core.InvalidConfiguration("workflow.fps", "must be between %g and %g, got %g", minFPS, maxFPS, w.Config.FPS)
	}
	if w.Config.Agents < minAgents || w.Config.Agents > maxAgents {
		return core.InvalidConfiguration("workflow.agents", "must be between %d and %d, got %d", minAgents, maxAgents, w.Config.Agents)
	}
	return nil
}

// detectionRule is one (keyword, workflow) pair of the detection table.
type detectionRule struct {
	keyword  string
	workflow string
}

// WorkflowRegistry holds every workflow loaded at startup. It is immutable
// after LoadWorkflows returns; detection evaluates an ordered rule table
// with an explicit default rather than cascading conditionals.
type WorkflowRegistry struct {
	workflows map[string]Workflow
	rules     []detectionRule
}

// LoadWorkflows reads every *.yml file in dir. Load order (and therefore
// detection precedence) is stable: sorted file names, generic last.
func LoadWorkflows(dir string) (*WorkflowRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read workflows dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	reg := &WorkflowRegistry{workflows: make(map[string]Workflow)}
	for _, name := range names {
		wf, err := loadWorkflowFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", name, err)
		}
		reg.workflows[wf.Name] = wf
		if wf.Name == GenericWorkflow {
			continue // the fallback has no trigger precedence
		}
		for _, kw := range wf.Triggers.Keywords {
			reg.rules = append(reg.rules, detectionRule{keyword: strings.ToLower(kw), workflow: wf.Name})
		}
	}
	if _, ok := reg.workflows[GenericWorkflow]; !ok {
		return nil, fmt.Errorf("workflows dir %s is missing the %s fallback", dir, GenericWorkflow)
	}
	return reg, nil
}

func loadWorkflowFile(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("read workflow %s: %w", path, err)
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if wf.Name == "" {
		return Workflow{}, fmt.Errorf("workflow %s missing name field", path)
	}
	return wf, nil
}

// Get looks a workflow up by name.
func (r *WorkflowRegistry) Get(name string) (Workflow, bool) {
	wf, ok := r.workflows[name]
	return wf, ok
}

// Names returns the registered workflow names in sorted order.
func (r *WorkflowRegistry) Names() []string {
	names := make([]string, 0, len(r.workflows))
	for name := range r.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns the first workflow whose trigger keyword appears in the
// task description, falling back to the generic workflow.
func (r *WorkflowRegistry) Detect(userTask string) string {
	lower := strings.ToLower(userTask)
	for _, rule := range r.rules {
		if strings.Contains(lower, rule.keyword) {
			return rule.workflow
		}
	}
	return GenericWorkflow
}
