package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sketch2fig/entities/artist"
	"sketch2fig/entities/judge"
	"sketch2fig/tools/compiler"
	"sketch2fig/tools/llm"
	"sketch2fig/tools/logger"
)

// Collaborator seams. The Studio only ever talks to these four surfaces, so
// tests can substitute any stage without touching the network or pdflatex.
type generator interface {
	Plan(ctx context.Context, imagePath string, clean bool) (*artist.Plan, error)
	Generate(ctx context.Context, plan *artist.Plan, imagePath string) (string, error)
	Refine(ctx context.Context, current string, eval *judge.Evaluation, imagePath string) (string, error)
	FixCompileError(ctx context.Context, source string, errs []compiler.ErrorRecord, rawLog string) (string, error)
}

type texCompiler interface {
	Compile(ctx context.Context, tikz, outputDir string) (string, string, error)
}

type rasterizer interface {
	Render(ctx context.Context, pdfPath string, dpi int) (string, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, originalPath, renderedPath string) (*judge.Evaluation, error)
}

// Studio drives the full conversion loop: plan once, then generate, compile
// with repair, rasterize, evaluate, and refine until a pass, a plateau, or
// budget exhaustion.
type Studio struct {
	config   Config
	artist   generator
	compiler texCompiler
	raster   rasterizer
	judge    evaluator
	log      *logger.Logger
}

// NewStudio validates the configuration and wires up all collaborators.
func NewStudio(config Config) (*Studio, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := logger.New("studio", config.Verbose)

	client, err := llm.NewClient(config.Provider, config.APIKey, config.Model, config.LLMTimeout.Std())
	if err != nil {
		return nil, err
	}

	var preamble string
	if config.PreamblePath != "" {
		data, err := os.ReadFile(config.PreamblePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read preamble: %w", err)
		}
		preamble = string(data)
	}

	j, err := judge.New(client, config.PassThreshold, log)
	if err != nil {
		return nil, err
	}

	return &Studio{
		config:   config,
		artist:   artist.New(client, preamble, log),
		compiler: compiler.New(preamble, config.CompileTimeout.Std()),
		raster:   compiler.NewRasterizer(config.CompileTimeout.Std()),
		judge:    j,
		log:      log,
	}, nil
}

// Convert runs the full loop for one input image. It always returns a Run
// describing what happened; the error is non-nil only for run-level faults
// (bad input, unwritable output directory, a dead LLM). Cancellation via ctx
// is a normal outcome, not an error.
func (s *Studio) Convert(ctx context.Context, inputImage string) (*Run, error) {
	absInput, err := filepath.Abs(inputImage)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path: %w", err)
	}
	if _, err := os.Stat(absInput); err != nil {
		return nil, fmt.Errorf("input image not found: %w", err)
	}
	if err := os.MkdirAll(s.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	run := newRun(absInput, s.config, s.config.OutputDir)
	s.log.Info("run %s started: %s", run.ID, filepath.Base(absInput))

	plan, err := s.artist.Plan(ctx, absInput, s.config.Clean)
	if err != nil {
		return s.fatal(run, fmt.Errorf("planning failed: %w", err))
	}

	var (
		history    []*judge.Evaluation
		prevSource string
		prevEval   *judge.Evaluation
		fresh      = true
	)

	for ord := 1; ord <= s.config.MaxIters; ord++ {
		iter := &Iteration{
			Ordinal: ord,
			Dir:     fmt.Sprintf("iter_%02d", ord),
			Status:  IterIncomplete,
		}

		if ctx.Err() != nil {
			return s.cancel(run, iter)
		}

		iterDir := filepath.Join(run.Dir(), iter.Dir)
		if err := os.MkdirAll(iterDir, 0755); err != nil {
			return s.fatal(run, fmt.Errorf("failed to create iteration directory: %w", err))
		}
		s.log.Info("iteration %d/%d", ord, s.config.MaxIters)

		var source string
		if fresh {
			source, err = s.artist.Generate(ctx, plan, absInput)
		} else {
			source, err = s.artist.Refine(ctx, prevSource, prevEval, absInput)
		}
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(run, iter)
			}
			return s.fatal(run, fmt.Errorf("generation failed: %w", err))
		}

		if ctx.Err() != nil {
			return s.cancel(run, iter)
		}

		outcome := s.compileWithRepair(ctx, source, iterDir)
		iter.Attempts = outcome.attempts

		if outcome.pdfPath == "" {
			if ctx.Err() != nil {
				return s.cancel(run, iter)
			}
			iter.Status = IterCompileFailed
			iter.Diagnostic = outcome.diagnostic
			s.log.Compilation(false, "", outcome.diagnostic)
			history = append(history, nil)
			s.finalizeIteration(run, iter)
			// Nothing survives a terminal compile failure, so the next
			// iteration starts from a full generation.
			fresh = true
			continue
		}

		srcName := filepath.Join(iter.Dir, "figure.tex")
		if err := os.WriteFile(filepath.Join(run.Dir(), srcName), []byte(outcome.source), 0644); err != nil {
			return s.fatal(run, fmt.Errorf("failed to persist source: %w", err))
		}
		iter.SourcePath = srcName
		s.log.Compilation(true, outcome.pdfPath, "")

		if ctx.Err() != nil {
			return s.cancel(run, iter)
		}

		rendered, err := s.raster.Render(ctx, outcome.pdfPath, s.config.DPI)
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(run, iter)
			}
			iter.Status = IterEvalFailed
			iter.Diagnostic = fmt.Sprintf("rasterization failed: %v", err)
			s.log.Error("rasterization failed: %v", err)
			history = append(history, nil)
			// prevSource/prevEval stay paired: this source was never
			// scored, so the next refinement re-edits the last scored one.
			s.finalizeIteration(run, iter)
			continue
		}
		renderedName := filepath.Join(iter.Dir, "rendered.png")
		if err := os.Rename(rendered, filepath.Join(run.Dir(), renderedName)); err != nil {
			return s.fatal(run, fmt.Errorf("failed to place rendered image: %w", err))
		}
		iter.RenderedPath = renderedName

		if ctx.Err() != nil {
			return s.cancel(run, iter)
		}

		eval, err := s.judge.Evaluate(ctx, absInput, filepath.Join(run.Dir(), renderedName))
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(run, iter)
			}
			iter.Status = IterEvalFailed
			iter.Diagnostic = fmt.Sprintf("evaluation failed: %v", err)
			s.log.Error("evaluation failed: %v", err)
			history = append(history, nil)
			// prevSource/prevEval stay paired here too.
			s.finalizeIteration(run, iter)
			continue
		}

		iter.Evaluation = eval
		if eval.Pass {
			iter.Status = IterPassed
		} else {
			iter.Status = IterScored
		}
		if data, merr := json.MarshalIndent(eval, "", "  "); merr == nil {
			evalName := filepath.Join(iter.Dir, "evaluation.json")
			if werr := os.WriteFile(filepath.Join(run.Dir(), evalName), data, 0644); werr != nil {
				s.log.Warn("failed to persist evaluation: %v", werr)
			}
		}
		s.log.Info("score %.2f (threshold %.2f, %d issue(s))",
			eval.Scores.Overall, s.config.PassThreshold, len(eval.Issues))

		history = append(history, eval)
		s.finalizeIteration(run, iter)

		if eval.Pass {
			s.log.Info("passed at iteration %d", ord)
			return s.finish(run, StatusPassed)
		}
		if shouldStop(history, s.config.PlateauEpsilon) {
			s.log.Info("score plateaued, stopping")
			return s.finish(run, StatusPlateau)
		}

		prevSource, prevEval, fresh = outcome.source, eval, false
	}

	s.log.Info("iteration budget exhausted")
	return s.finish(run, StatusExhausted)
}

// finalizeIteration freezes the iteration onto the run and rewrites the
// manifest so a crash never loses a completed pass.
func (s *Studio) finalizeIteration(run *Run, iter *Iteration) {
	run.Iterations = append(run.Iterations, iter)
	if err := run.save(); err != nil {
		s.log.Warn("failed to save run manifest: %v", err)
	}
}

// finish closes out the run: picks the best-effort final artifacts, stamps
// the status, and writes the manifest one last time.
func (s *Studio) finish(run *Run, status string) (*Run, error) {
	if status != StatusCancelled && status != StatusPassed && run.lastCompiled() == nil {
		status = StatusNoArtifact
	}
	run.Status = status

	if final := s.finalSource(run); final != nil {
		if final.SourcePath != "" {
			if err := copyArtifact(run.Dir(), final.SourcePath, "final.tex"); err == nil {
				run.FinalTeX = "final.tex"
			} else {
				s.log.Warn("failed to copy final source: %v", err)
			}
		}
		if final.RenderedPath != "" {
			if err := copyArtifact(run.Dir(), final.RenderedPath, "final.png"); err == nil {
				run.FinalPNG = "final.png"
			} else {
				s.log.Warn("failed to copy final render: %v", err)
			}
		}
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := run.save(); err != nil {
		s.log.Warn("failed to save run manifest: %v", err)
	}
	s.log.Info("run %s finished: %s", run.ID, run.Status)
	return run, nil
}

// finalSource picks the iteration whose artifacts become final.tex and
// final.png: the highest-scoring one, falling back to the last that compiled.
func (s *Studio) finalSource(run *Run) *Iteration {
	if best := run.bestIteration(); best != nil {
		return best
	}
	return run.lastCompiled()
}

func (s *Studio) cancel(run *Run, iter *Iteration) (*Run, error) {
	iter.Status = IterIncomplete
	run.Iterations = append(run.Iterations, iter)
	s.log.Warn("run cancelled at iteration %d", iter.Ordinal)
	return s.finish(run, StatusCancelled)
}

func (s *Studio) fatal(run *Run, err error) (*Run, error) {
	run.Status = StatusError
	now := time.Now().UTC()
	run.FinishedAt = &now
	if serr := run.save(); serr != nil {
		s.log.Warn("failed to save run manifest: %v", serr)
	}
	s.log.Error("%v", err)
	return run, err
}

func copyArtifact(runDir, relSrc, relDst string) error {
	data, err := os.ReadFile(filepath.Join(runDir, relSrc))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, relDst), data, 0644)
}
