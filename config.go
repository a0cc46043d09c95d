package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "30s" or "10m".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the immutable configuration for one run. It is validated once
// at run start; no stage applies defaults of its own.
type Config struct {
	Provider       string   `yaml:"provider" json:"provider"`
	Model          string   `yaml:"model" json:"model"`
	APIKey         string   `yaml:"-" json:"-"`
	MaxIters       int      `yaml:"max_iters" json:"max_iters"`
	CompileRetries int      `yaml:"compile_retries" json:"compile_retries"`
	PassThreshold  float64  `yaml:"pass_threshold" json:"pass_threshold"`
	PlateauEpsilon float64  `yaml:"plateau_epsilon" json:"plateau_epsilon"`
	CompileTimeout Duration `yaml:"compile_timeout" json:"compile_timeout"`
	LLMTimeout     Duration `yaml:"llm_timeout" json:"llm_timeout"`
	DPI            int      `yaml:"dpi" json:"dpi"`
	OutputDir      string   `yaml:"output_dir" json:"output_dir"`
	Clean          bool     `yaml:"clean" json:"clean"`
	PreamblePath   string   `yaml:"preamble" json:"preamble,omitempty"`
	Verbose        bool     `yaml:"-" json:"-"`
}

// defaultConfigYAML is the baseline configuration. A user config file
// overrides individual keys; credentials always come from the environment.
const defaultConfigYAML = `# sketch2fig configuration
provider: anthropic
model: claude-sonnet-4-5
max_iters: 5
compile_retries: 3
pass_threshold: 8.0
plateau_epsilon: 0.0
compile_timeout: 30s
llm_timeout: 10m
dpi: 300
`

// LoadConfig builds a Config from the embedded defaults, an optional YAML
// file, and environment credentials.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse default config: %w", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.APIKey = credentialFromEnv(cfg.Provider)
	return cfg, nil
}

func credentialFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate fails fast on missing or nonsensical values. A Config that does
// not validate never starts a Run.
func (c Config) Validate() error {
	if c.Provider != "anthropic" && c.Provider != "gemini" {
		return fmt.Errorf("unknown provider %q (want anthropic or gemini)", c.Provider)
	}
	if c.APIKey == "" {
		env := "ANTHROPIC_API_KEY"
		if c.Provider == "gemini" {
			env = "GEMINI_API_KEY"
		}
		return fmt.Errorf("missing credentials: set %s", env)
	}
	if c.MaxIters <= 0 {
		return fmt.Errorf("max_iters must be positive, got %d", c.MaxIters)
	}
	if c.CompileRetries <= 0 {
		return fmt.Errorf("compile_retries must be positive, got %d", c.CompileRetries)
	}
	if c.PassThreshold <= 0 {
		return fmt.Errorf("pass_threshold must be set")
	}
	if c.PlateauEpsilon < 0 {
		return fmt.Errorf("plateau_epsilon must be non-negative, got %g", c.PlateauEpsilon)
	}
	if c.CompileTimeout <= 0 {
		return fmt.Errorf("compile_timeout must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive")
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}
