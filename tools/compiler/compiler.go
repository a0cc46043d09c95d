package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const documentTemplate = `\documentclass[border=5pt]{standalone}
\usepackage{tikz}
\usetikzlibrary{calc,positioning,arrows.meta,shapes,backgrounds,fit,math}
\usepackage{amsmath,amssymb}
%s
\begin{document}
%s
\end{document}
`

// Compiler wraps the external pdflatex toolchain. Each compile runs in its
// own temporary working directory so concurrent runs and retried attempts
// never collide on filenames. pdflatex keeps no state between calls.
type Compiler struct {
	preamble string
	timeout  time.Duration
}

// New creates a compiler with an optional extra preamble and a wall-clock
// timeout applied to every pdflatex invocation.
func New(preamble string, timeout time.Duration) *Compiler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Compiler{preamble: preamble, timeout: timeout}
}

// WrapDocument wraps a tikzpicture block in a standalone LaTeX document.
func (c *Compiler) WrapDocument(tikz string) string {
	return fmt.Sprintf(documentTemplate, strings.TrimSpace(c.preamble), tikz)
}

// Compile compiles a tikzpicture block to PDF. On success the PDF is copied
// into outputDir as figure.pdf and its path returned. On a compile failure
// (including timeout) the path is empty and the diagnostic log is returned;
// err is reserved for environment problems such as unwritable directories.
func (c *Compiler) Compile(ctx context.Context, tikz string, outputDir string) (string, string, error) {
	tmpDir, err := os.MkdirTemp("", "s2f-")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	texPath := filepath.Join(tmpDir, "figure.tex")
	if err := os.WriteFile(texPath, []byte(c.WrapDocument(tikz)), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write tex file: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "pdflatex",
		"-interaction=nonstopmode",
		"-halt-on-error",
		"figure.tex",
	)
	cmd.Dir = tmpDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	log := stdout.String() + stderr.String()
	if cctx.Err() == context.DeadlineExceeded {
		log += fmt.Sprintf("\npdflatex timed out after %v\n", c.timeout)
	}

	pdfSrc := filepath.Join(tmpDir, "figure.pdf")
	if _, err := os.Stat(pdfSrc); err != nil {
		// Compile failure, not an environment error; runErr is already
		// reflected in the log.
		_ = runErr
		return "", log, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", log, fmt.Errorf("failed to create output directory: %w", err)
	}
	dest := filepath.Join(outputDir, "figure.pdf")
	if err := copyFile(pdfSrc, dest); err != nil {
		return "", log, fmt.Errorf("failed to copy PDF: %w", err)
	}

	return dest, log, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
