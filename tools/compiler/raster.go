package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rasterizer renders compiled PDFs to PNG via pdftoppm. Deterministic given
// identical inputs.
type Rasterizer struct {
	timeout time.Duration
}

// NewRasterizer creates a rasterizer with a per-invocation timeout.
func NewRasterizer(timeout time.Duration) *Rasterizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Rasterizer{timeout: timeout}
}

// Render rasterizes the first page of a PDF to a PNG next to it and returns
// the PNG path.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string, dpi int) (string, error) {
	if dpi <= 0 {
		dpi = 300
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outPrefix := filepath.Join(filepath.Dir(pdfPath), stem)

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "pdftoppm", "-png", "-r", strconv.Itoa(dpi), pdfPath, outPrefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w: %s", err, stderr.String())
	}

	// pdftoppm names the first page <prefix>-1.png
	candidates, err := filepath.Glob(outPrefix + "-*.png")
	if err != nil || len(candidates) == 0 {
		return "", fmt.Errorf("pdftoppm produced no PNG from %s", pdfPath)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}
