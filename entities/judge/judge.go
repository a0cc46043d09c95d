// Package judge normalizes the vision model's comparison of the original
// figure against a rendered candidate into a deterministic score vector.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"sketch2fig/tools/llm"
	"sketch2fig/tools/logger"
)

// ErrInvalidResponse marks a judge response that could not be parsed into
// the fixed evaluation schema, after the one permitted strict retry.
var ErrInvalidResponse = errors.New("evaluation response did not match schema")

// evaluationSchemaJSON validates the judge's structured output before it is
// mapped onto Evaluation. Embedded as a constant to avoid filesystem
// dependencies.
const evaluationSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://sketch2fig.dev/schemas/evaluation.json",
  "type": "object",
  "required": ["scores", "issues"],
  "properties": {
    "scores": {
      "type": "object",
      "required": ["completeness", "structural_match", "text_accuracy", "aesthetic_quality"],
      "properties": {
        "completeness": {"type": "number", "minimum": 0, "maximum": 10},
        "structural_match": {"type": "number", "minimum": 0, "maximum": 10},
        "text_accuracy": {"type": "number", "minimum": 0, "maximum": 10},
        "aesthetic_quality": {"type": "number", "minimum": 0, "maximum": 10},
        "overall": {"type": "number"}
      }
    },
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["severity", "description"],
        "properties": {
          "severity": {"type": "string", "enum": ["minor", "major"]},
          "category": {"type": "string"},
          "description": {"type": "string"},
          "suggestion": {"type": "string"}
        }
      }
    },
    "pass": {"type": "boolean"}
  }
}`

const evaluatorSystem = `You are an expert at evaluating TikZ-rendered figures against original sketches or screenshots. You will be shown two images: first the original input figure, then the TikZ-rendered output.

Compare the two images and evaluate how well the output reproduces the input. Be specific: vague feedback like "looks off" is not actionable. Do NOT write any prose before the JSON.

Return ONLY valid JSON (no markdown fencing):
{
  "scores": {
    "completeness": <1-10, are all elements present?>,
    "structural_match": <1-10, do layout and proportions match?>,
    "text_accuracy": <1-10, are labels correct?>,
    "aesthetic_quality": <1-10, does it look clean and publication-ready?>
  },
  "issues": [
    {
      "severity": "major | minor",
      "category": "structural | text | aesthetic | missing_element",
      "description": "specific description of the problem",
      "suggestion": "concrete TikZ fix"
    }
  ]
}`

const evaluatorUser = `The first image is the original figure. The second image is the TikZ-rendered output. Evaluate how well the output reproduces the original and return a JSON assessment.`

const evaluatorStrictRetry = `Your previous response could not be parsed against the required schema. Respond again with ONLY a valid JSON object containing "scores" (completeness, structural_match, text_accuracy, aesthetic_quality as numbers 1-10) and "issues" (array of {severity, category, description, suggestion} with severity "minor" or "major"). No prose, no code fences.`

// Judge sends image pairs to the vision model and normalizes the verdict.
type Judge struct {
	client    llm.Client
	threshold float64
	schema    *jsonschema.Schema
	log       *logger.Logger
}

// New creates a Judge. The pass threshold comes from validated configuration;
// there is no default here.
func New(client llm.Client, threshold float64, log *logger.Logger) (*Judge, error) {
	if log == nil {
		log = logger.Default()
	}

	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(evaluationSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal evaluation schema: %w", err)
	}
	if err := c.AddResource("https://sketch2fig.dev/schemas/evaluation.json", doc); err != nil {
		return nil, fmt.Errorf("add evaluation schema resource: %w", err)
	}
	schema, err := c.Compile("https://sketch2fig.dev/schemas/evaluation.json")
	if err != nil {
		return nil, fmt.Errorf("compile evaluation schema: %w", err)
	}

	return &Judge{
		client:    client,
		threshold: threshold,
		schema:    schema,
		log:       log.WithPrefix("judge"),
	}, nil
}

// Evaluate compares the original input figure against a rendered candidate.
// A malformed response is retried once with a stricter instruction and then
// surfaced as ErrInvalidResponse, never silently defaulted to a zero score.
func (j *Judge) Evaluate(ctx context.Context, originalPath, renderedPath string) (*Evaluation, error) {
	original, err := llm.LoadImage(originalPath)
	if err != nil {
		return nil, err
	}
	rendered, err := llm.LoadImage(renderedPath)
	if err != nil {
		return nil, err
	}

	images := []llm.Image{original, rendered}
	opts := &llm.RequestOptions{MaxTokens: 4096, ForceJSON: true}

	messages := []llm.Message{{Role: "user", Content: evaluatorUser, Images: images}}
	resp, err := j.client.CompleteWithRetry(ctx, evaluatorSystem, messages, 2, opts)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	j.log.Tokens(resp.InputTokens, resp.OutputTokens)

	eval, parseErr := j.parseEvaluation(resp.Content)
	if parseErr != nil {
		j.log.Warn("malformed evaluation, retrying with strict instruction: %v", parseErr)
		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: evaluatorStrictRetry},
		)
		resp, err = j.client.CompleteWithRetry(ctx, evaluatorSystem, messages, 2, opts)
		if err != nil {
			return nil, fmt.Errorf("evaluation retry failed: %w", err)
		}
		eval, parseErr = j.parseEvaluation(resp.Content)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, parseErr)
		}
	}

	j.logVerdict(eval)
	return eval, nil
}

func (j *Judge) parseEvaluation(content string) (*Evaluation, error) {
	raw := StripJSONFences(content)

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := j.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var eval Evaluation
	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	eval.Scores.Overall = math.Round(computeOverall(eval.Scores)*100) / 100
	eval.Pass = isPass(eval.Scores.Overall, j.threshold, eval.Issues)
	return &eval, nil
}

func (j *Judge) logVerdict(eval *Evaluation) {
	verdict := "FAIL"
	if eval.Pass {
		verdict = "PASS"
	}
	j.log.Info("overall=%.2f completeness=%.1f structure=%.1f text=%.1f aesthetic=%.1f -> %s",
		eval.Scores.Overall,
		eval.Scores.Completeness,
		eval.Scores.StructuralMatch,
		eval.Scores.TextAccuracy,
		eval.Scores.AestheticQuality,
		verdict)
	for _, issue := range eval.Issues {
		j.log.Info("  [%s] %s: %s", strings.ToUpper(issue.Severity), issue.Category, issue.Description)
	}
}

var (
	openFenceRe  = regexp.MustCompile("^```[a-z]*\n?")
	closeFenceRe = regexp.MustCompile("\n?```$")
)

// StripJSONFences removes markdown code fences from a JSON response.
func StripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	text = openFenceRe.ReplaceAllString(text, "")
	text = closeFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
