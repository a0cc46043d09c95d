package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var convertFlags struct {
	configPath string
	outputDir  string
	provider   string
	model      string
	preamble   string
	maxIters   int
	clean      bool
	verbose    bool
}

var convertCmd = &cobra.Command{
	Use:   "convert <image>",
	Short: "Convert one image to a TikZ figure",
	Long: `Convert a sketch or figure image to TikZ, iterating until the rendered
result matches the input or the iteration budget runs out.

All artifacts (per-iteration sources, compile logs, renders, scores, and the
run manifest) are written to the output directory, which defaults to
output/<image-stem>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertFlags.configPath, "config", "", "Path to YAML config file")
	f.StringVarP(&convertFlags.outputDir, "output-dir", "o", "", "Artifact directory (default: output/<image-stem>)")
	f.StringVar(&convertFlags.provider, "provider", "", "LLM provider: anthropic or gemini")
	f.StringVar(&convertFlags.model, "model", "", "Model name override")
	f.StringVar(&convertFlags.preamble, "preamble", "", "Path to a custom LaTeX preamble")
	f.IntVar(&convertFlags.maxIters, "max-iters", 0, "Iteration budget override")
	f.BoolVar(&convertFlags.clean, "clean", false, "Idealize the sketch instead of reproducing it faithfully")
	f.BoolVarP(&convertFlags.verbose, "verbose", "v", false, "Verbose logging")
}

func runConvert(cmd *cobra.Command, args []string) error {
	image := args[0]

	cfg, err := buildConfig(image)
	if err != nil {
		return err
	}

	studio, err := NewStudio(cfg)
	if err != nil {
		return err
	}

	run, err := studio.Convert(cmd.Context(), image)
	if err != nil {
		return err
	}

	printRunSummary(cmd, run)
	if run.Status == StatusNoArtifact || run.Status == StatusError {
		os.Exit(1)
	}
	return nil
}

// buildConfig layers the convert flags over the loaded configuration.
func buildConfig(image string) (Config, error) {
	cfg, err := LoadConfig(convertFlags.configPath)
	if err != nil {
		return Config{}, err
	}

	if convertFlags.provider != "" {
		cfg.Provider = convertFlags.provider
		cfg.APIKey = credentialFromEnv(cfg.Provider)
	}
	if convertFlags.model != "" {
		cfg.Model = convertFlags.model
	}
	if convertFlags.preamble != "" {
		cfg.PreamblePath = convertFlags.preamble
	}
	if convertFlags.maxIters > 0 {
		cfg.MaxIters = convertFlags.maxIters
	}
	if convertFlags.clean {
		cfg.Clean = true
	}
	cfg.Verbose = convertFlags.verbose

	cfg.OutputDir = convertFlags.outputDir
	if cfg.OutputDir == "" {
		stem := strings.TrimSuffix(filepath.Base(image), filepath.Ext(image))
		cfg.OutputDir = filepath.Join("output", stem)
	}
	return cfg, nil
}

func printRunSummary(cmd *cobra.Command, run *Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun:        %s\n", run.ID)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Iterations: %d\n", len(run.Iterations))
	if score, ok := run.BestScore(); ok {
		fmt.Fprintf(out, "Best score: %.2f / 10\n", score)
	}
	if run.FinalTeX != "" {
		fmt.Fprintf(out, "Final TikZ: %s\n", filepath.Join(run.Dir(), run.FinalTeX))
	}
	if run.FinalPNG != "" {
		fmt.Fprintf(out, "Final PNG:  %s\n", filepath.Join(run.Dir(), run.FinalPNG))
	}
	fmt.Fprintf(out, "Artifacts:  %s\n", run.Dir())
}
