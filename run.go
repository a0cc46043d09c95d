package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sketch2fig/entities/judge"
)

// Terminal run statuses.
const (
	StatusRunning    = "running"
	StatusPassed     = "passed"
	StatusPlateau    = "stopped: plateau"
	StatusExhausted  = "stopped: budget exhausted"
	StatusNoArtifact = "failed: no compilable artifact"
	StatusCancelled  = "cancelled"
	StatusError      = "failed: run error"
)

// Iteration statuses.
const (
	IterPassed        = "passed"
	IterScored        = "scored"
	IterCompileFailed = "compile_failed"
	IterEvalFailed    = "evaluation_failed"
	IterIncomplete    = "incomplete"
)

const manifestName = "run.json"

// CompileAttempt records one try inside the compile-repair cycle. The
// source and raw log are persisted to the paths below before the next
// attempt runs, so every intermediate state is inspectable.
type CompileAttempt struct {
	Attempt      int    `json:"attempt"`
	SourcePath   string `json:"source_path"`
	LogPath      string `json:"log_path"`
	Succeeded    bool   `json:"succeeded"`
	ErrorSummary string `json:"error_summary,omitempty"`
}

// Iteration is one generate/compile/evaluate pass. Mutated only by the
// stage currently executing it, frozen once appended to the Run.
// All paths are relative to the run directory.
type Iteration struct {
	Ordinal      int               `json:"ordinal"`
	Dir          string            `json:"dir"`
	Status       string            `json:"status"`
	Attempts     []CompileAttempt  `json:"attempts,omitempty"`
	Diagnostic   string            `json:"diagnostic,omitempty"`
	SourcePath   string            `json:"source_path,omitempty"`
	RenderedPath string            `json:"rendered_path,omitempty"`
	Evaluation   *judge.Evaluation `json:"evaluation,omitempty"`
}

// Compiled reports whether this iteration produced a compiled artifact.
func (it *Iteration) Compiled() bool {
	switch it.Status {
	case IterPassed, IterScored, IterEvalFailed:
		return true
	}
	return false
}

// Overall returns the iteration's overall score, or false when unscored.
func (it *Iteration) Overall() (float64, bool) {
	if it.Evaluation == nil {
		return 0, false
	}
	return it.Evaluation.Scores.Overall, true
}

// Run is one end-to-end conversion attempt. Owned exclusively by the
// Studio; immutable once the run directory is finalized.
type Run struct {
	ID         string       `json:"id"`
	InputImage string       `json:"input_image"`
	Config     Config       `json:"config"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Iterations []*Iteration `json:"iterations"`
	FinalTeX   string       `json:"final_tex,omitempty"`
	FinalPNG   string       `json:"final_png,omitempty"`

	dir string
}

func newRun(inputImage string, cfg Config, dir string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		InputImage: inputImage,
		Config:     cfg,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
		dir:        dir,
	}
}

// Dir returns the absolute run directory.
func (r *Run) Dir() string { return r.dir }

// Passed reports whether any iteration passed.
func (r *Run) Passed() bool { return r.Status == StatusPassed }

// BestScore returns the highest overall score across iterations, or false
// when no iteration was scored.
func (r *Run) BestScore() (float64, bool) {
	best := r.bestIteration()
	if best == nil {
		return 0, false
	}
	return best.Overall()
}

// bestIteration picks the highest-scoring evaluated iteration; on equal
// scores the earlier iteration is retained.
func (r *Run) bestIteration() *Iteration {
	var best *Iteration
	var bestScore float64
	for _, it := range r.Iterations {
		score, ok := it.Overall()
		if !ok {
			continue
		}
		if best == nil || score > bestScore {
			best = it
			bestScore = score
		}
	}
	return best
}

// lastCompiled returns the most recent iteration with a compiled artifact.
func (r *Run) lastCompiled() *Iteration {
	for i := len(r.Iterations) - 1; i >= 0; i-- {
		if r.Iterations[i].Compiled() {
			return r.Iterations[i]
		}
	}
	return nil
}

// save writes the manifest atomically. Called after every finalized
// iteration so a crash mid-run still leaves a loadable prefix on disk.
func (r *Run) save() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run manifest: %w", err)
	}
	tmp := filepath.Join(r.dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(r.dir, manifestName)); err != nil {
		return fmt.Errorf("failed to finalize run manifest: %w", err)
	}
	return nil
}

// LoadRun reconstructs a Run from its artifact directory without invoking
// any collaborator.
func LoadRun(dir string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read run manifest: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run manifest: %w", err)
	}
	run.dir = dir
	return &run, nil
}
