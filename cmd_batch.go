package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var batchFlags struct {
	configPath  string
	outputRoot  string
	provider    string
	preamble    string
	maxIters    int
	concurrency int
	clean       bool
	verbose     bool
}

var batchCmd = &cobra.Command{
	Use:   "batch <image>...",
	Short: "Convert several images concurrently",
	Long: `Run a conversion for each image, up to --concurrency at a time. Every run
gets its own directory under the output root, so runs never share artifacts.

A failed image does not stop the batch; failures are reported at the end.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.configPath, "config", "", "Path to YAML config file")
	f.StringVarP(&batchFlags.outputRoot, "output-dir", "o", "output", "Root directory for per-image artifacts")
	f.StringVar(&batchFlags.provider, "provider", "", "LLM provider: anthropic or gemini")
	f.StringVar(&batchFlags.preamble, "preamble", "", "Path to a custom LaTeX preamble")
	f.IntVar(&batchFlags.maxIters, "max-iters", 0, "Iteration budget override")
	f.IntVarP(&batchFlags.concurrency, "concurrency", "c", 2, "Concurrent conversions")
	f.BoolVar(&batchFlags.clean, "clean", false, "Idealize the sketches instead of reproducing them faithfully")
	f.BoolVarP(&batchFlags.verbose, "verbose", "v", false, "Verbose logging")
}

func runBatch(cmd *cobra.Command, args []string) error {
	base, err := LoadConfig(batchFlags.configPath)
	if err != nil {
		return err
	}
	if batchFlags.provider != "" {
		base.Provider = batchFlags.provider
		base.APIKey = credentialFromEnv(base.Provider)
	}
	if batchFlags.preamble != "" {
		base.PreamblePath = batchFlags.preamble
	}
	if batchFlags.maxIters > 0 {
		base.MaxIters = batchFlags.maxIters
	}
	if batchFlags.clean {
		base.Clean = true
	}
	base.Verbose = batchFlags.verbose

	type result struct {
		image  string
		status string
		score  float64
		scored bool
		err    error
	}
	results := make([]result, len(args))
	outputDirs := batchOutputDirs(batchFlags.outputRoot, args)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(batchFlags.concurrency)

	for i, image := range args {
		g.Go(func() error {
			cfg := base
			cfg.OutputDir = outputDirs[i]

			res := result{image: image}
			studio, err := NewStudio(cfg)
			if err != nil {
				res.err = err
				results[i] = res
				return nil
			}

			run, err := studio.Convert(ctx, image)
			if run != nil {
				res.status = run.Status
				res.score, res.scored = run.BestScore()
			}
			res.err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	fmt.Fprintf(out, "\nBatch results (%d image(s)):\n", len(args))
	for _, res := range results {
		switch {
		case res.err != nil:
			failed++
			fmt.Fprintf(out, "  FAIL  %-30s %v\n", res.image, res.err)
		case res.scored:
			fmt.Fprintf(out, "  %-5s %-30s %.2f / 10 (%s)\n", mark(res.status), res.image, res.score, res.status)
		default:
			failed++
			fmt.Fprintf(out, "  FAIL  %-30s %s\n", res.image, res.status)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversion(s) failed", failed, len(args))
	}
	return nil
}

func mark(status string) string {
	if status == StatusPassed {
		return "OK"
	}
	return "DONE"
}

// batchOutputDirs assigns every image a run directory under root. Images
// sharing a filename stem get a numeric suffix; concurrent runs must never
// write into the same artifact tree.
func batchOutputDirs(root string, images []string) []string {
	dirs := make([]string, len(images))
	used := make(map[string]bool, len(images))
	for i, image := range images {
		stem := strings.TrimSuffix(filepath.Base(image), filepath.Ext(image))
		name := stem
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", stem, n)
		}
		used[name] = true
		dirs[i] = filepath.Join(root, name)
	}
	return dirs
}
