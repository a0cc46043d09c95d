package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sketch2fig/tools/compiler"
)

// repairOutcome is the typed result of the compile-repair cycle. A nil-path
// outcome means the cycle ended without a compiled artifact; the attempt
// list and diagnostic explain why.
type repairOutcome struct {
	pdfPath    string
	source     string
	attempts   []CompileAttempt
	diagnostic string
}

// compileWithRepair compiles source, and on failure asks the artist for a
// minimal fix of the first extracted error, retrying up to the configured
// attempt budget. Each attempt's source and raw diagnostic log are written
// into iterDir before the next attempt so a human can inspect every
// intermediate state even on terminal failure. An unparseable diagnostic
// stops the cycle immediately: repairing blind would just burn attempts.
func (s *Studio) compileWithRepair(ctx context.Context, source, iterDir string) repairOutcome {
	out := repairOutcome{source: source}
	relDir := filepath.Base(iterDir)

	for attempt := 1; attempt <= s.config.CompileRetries; attempt++ {
		srcName := fmt.Sprintf("attempt_%d.tex", attempt)
		logName := fmt.Sprintf("attempt_%d.log", attempt)

		if err := os.WriteFile(filepath.Join(iterDir, srcName), []byte(out.source), 0644); err != nil {
			s.log.Warn("failed to persist attempt source: %v", err)
		}

		pdf, rawLog, err := s.compiler.Compile(ctx, out.source, iterDir)

		if werr := os.WriteFile(filepath.Join(iterDir, logName), []byte(rawLog), 0644); werr != nil {
			s.log.Warn("failed to persist attempt log: %v", werr)
		}

		rec := CompileAttempt{
			Attempt:    attempt,
			SourcePath: filepath.Join(relDir, srcName),
			LogPath:    filepath.Join(relDir, logName),
		}

		if err != nil {
			rec.ErrorSummary = err.Error()
			out.attempts = append(out.attempts, rec)
			out.diagnostic = err.Error()
			s.log.Error("compile environment error: %v", err)
			return out
		}

		if pdf != "" {
			rec.Succeeded = true
			out.attempts = append(out.attempts, rec)
			out.pdfPath = pdf
			return out
		}

		errs := compiler.ParseErrors(rawLog, out.source)
		if len(errs) > 0 {
			rec.ErrorSummary = errs[0].Message
		}
		out.attempts = append(out.attempts, rec)
		out.diagnostic = logTail(rawLog, 2000)

		if len(errs) == 0 {
			s.log.Warn("compile attempt %d/%d failed without a parseable error, surfacing raw log",
				attempt, s.config.CompileRetries)
			return out
		}

		s.log.Warn("compile attempt %d/%d failed: %s", attempt, s.config.CompileRetries, errs[0].Message)

		if attempt == s.config.CompileRetries {
			return out
		}

		fixed, ferr := s.artist.FixCompileError(ctx, out.source, errs, rawLog)
		if ferr != nil {
			out.diagnostic = ferr.Error()
			s.log.Error("repair request failed: %v", ferr)
			return out
		}
		out.source = fixed
	}

	return out
}

func logTail(log string, n int) string {
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}
