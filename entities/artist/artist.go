// Package artist handles the generative side of the pipeline: planning a
// figure from its image, producing TikZ code, targeted refinement, and
// minimal compile-error fixes.
package artist

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sketch2fig/entities/judge"
	"sketch2fig/tools/compiler"
	"sketch2fig/tools/llm"
	"sketch2fig/tools/logger"
)

const (
	maxRetries       = 2
	maxContinuations = 3
	defaultMaxTokens = 16384
)

// Plan is the structured figure description produced once per run. The raw
// JSON is passed through to generation unchanged; only a few fields are
// probed for logging.
type Plan struct {
	Raw            json.RawMessage
	FigureType     string
	Layout         string
	Elements       int
	Connections    int
	AestheticNotes string
}

// Artist handles LLM interactions for figure generation.
type Artist struct {
	client   llm.Client
	log      *logger.Logger
	preamble string
}

// New creates a new Artist. The preamble, when non-empty, is surfaced to the
// generator so it may use the styles it defines.
func New(client llm.Client, preamble string, log *logger.Logger) *Artist {
	if log == nil {
		log = logger.Default()
	}
	return &Artist{
		client:   client,
		log:      log.WithPrefix("artist"),
		preamble: preamble,
	}
}

// Plan analyzes the input image and returns a structured figure plan.
// Invoked once per run; refinement never re-plans.
func (a *Artist) Plan(ctx context.Context, imagePath string, clean bool) (*Plan, error) {
	done := a.log.Step("Planning figure")
	defer done()

	img, err := llm.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{{Role: "user", Content: plannerUser(clean), Images: []llm.Image{img}}}
	opts := &llm.RequestOptions{MaxTokens: 4096, ForceJSON: true}

	resp, err := a.client.CompleteWithRetry(ctx, plannerSystem, messages, maxRetries+1, opts)
	if err != nil {
		return nil, fmt.Errorf("planning request failed: %w", err)
	}
	a.log.Tokens(resp.InputTokens, resp.OutputTokens)

	plan, err := parsePlan(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	a.log.Info("plan: %s | %s | %d element(s) | %d connection(s)",
		plan.FigureType, plan.Layout, plan.Elements, plan.Connections)
	if plan.AestheticNotes != "" {
		a.log.Info("aesthetic notes: %s", plan.AestheticNotes)
	}
	return plan, nil
}

func parsePlan(content string) (*Plan, error) {
	raw := judge.StripJSONFences(content)

	var probe struct {
		FigureType     string            `json:"figure_type"`
		Layout         string            `json:"layout"`
		Elements       []json.RawMessage `json:"elements"`
		Connections    []json.RawMessage `json:"connections"`
		AestheticNotes string            `json:"aesthetic_notes"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}

	return &Plan{
		Raw:            json.RawMessage(raw),
		FigureType:     probe.FigureType,
		Layout:         probe.Layout,
		Elements:       len(probe.Elements),
		Connections:    len(probe.Connections),
		AestheticNotes: probe.AestheticNotes,
	}, nil
}

// Generate produces a full tikzpicture block from the plan and the original
// image. Used only for the first iteration of a run (and after a terminal
// compile failure, when there is no surviving source to refine).
func (a *Artist) Generate(ctx context.Context, plan *Plan, imagePath string) (string, error) {
	done := a.log.Step("Generating TikZ")
	defer done()

	img, err := llm.LoadImage(imagePath)
	if err != nil {
		return "", err
	}

	messages := []llm.Message{{
		Role:    "user",
		Content: generatorUser(string(plan.Raw), strings.TrimSpace(a.preamble)),
		Images:  []llm.Image{img},
	}}

	content, err := a.completeWithContinuation(ctx, generatorSystem, messages)
	if err != nil {
		return "", err
	}

	tikz := ExtractTikzBlock(content)
	a.log.Debug("generated TikZ (%d chars)", len(tikz))
	return tikz, nil
}

// Refine makes a targeted edit to existing code. The request carries the
// current source, the evaluator's issue list, and the original image, and
// instructs the model to preserve structure and change only what the issues
// identify. Regeneration from scratch is never used here.
func (a *Artist) Refine(ctx context.Context, current string, eval *judge.Evaluation, imagePath string) (string, error) {
	done := a.log.Step("Refining TikZ")
	defer done()

	img, err := llm.LoadImage(imagePath)
	if err != nil {
		return "", err
	}

	critique, err := json.MarshalIndent(map[string]any{
		"scores": eval.Scores,
		"issues": eval.Issues,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode critique: %w", err)
	}

	messages := []llm.Message{{
		Role:    "user",
		Content: refinerUser(current, string(critique)),
		Images:  []llm.Image{img},
	}}

	content, err := a.completeWithContinuation(ctx, refinerSystem, messages)
	if err != nil {
		return "", err
	}
	return ExtractTikzBlock(content), nil
}

// FixCompileError asks for a minimal fix of a pdflatex failure, supplying
// the extracted error with its line context, or the raw log tail when
// nothing was extractable.
func (a *Artist) FixCompileError(ctx context.Context, source string, errs []compiler.ErrorRecord, rawLog string) (string, error) {
	done := a.log.Step("Fixing compile error")
	defer done()

	var summary string
	if len(errs) > 0 {
		var b strings.Builder
		for _, e := range errs {
			if e.Line != nil {
				fmt.Fprintf(&b, "Line %d: %s\n%s\n", *e.Line, e.Message, e.Context)
			} else {
				fmt.Fprintf(&b, "%s\n", e.Message)
			}
		}
		summary = b.String()
	} else {
		summary = logTail(rawLog, 1500)
	}

	messages := []llm.Message{{Role: "user", Content: compileFixUser(source, summary)}}
	opts := &llm.RequestOptions{MaxTokens: defaultMaxTokens}

	resp, err := a.client.CompleteWithRetry(ctx, compileFixSystem, messages, maxRetries+1, opts)
	if err != nil {
		return "", fmt.Errorf("compile-fix request failed: %w", err)
	}
	a.log.Tokens(resp.InputTokens, resp.OutputTokens)

	return ExtractTikzBlock(resp.Content), nil
}

// completeWithContinuation handles responses that hit the token limit.
func (a *Artist) completeWithContinuation(ctx context.Context, systemPrompt string, messages []llm.Message) (string, error) {
	opts := &llm.RequestOptions{MaxTokens: defaultMaxTokens}

	resp, err := a.client.CompleteWithRetry(ctx, systemPrompt, messages, maxRetries+1, opts)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	a.log.Tokens(resp.InputTokens, resp.OutputTokens)

	content := resp.Content
	if !resp.WasTruncated() {
		return content, nil
	}

	a.log.Warn("response truncated, requesting continuation...")

	for i := 0; i < maxContinuations; i++ {
		contMessages := append(append([]llm.Message{}, messages...),
			llm.Message{Role: "assistant", Content: content},
			llm.Message{Role: "user", Content: "Continue exactly where you left off. Do not repeat any code."},
		)

		contResp, err := a.client.CompleteWithRetry(ctx, systemPrompt, contMessages, maxRetries+1, opts)
		if err != nil {
			return "", fmt.Errorf("continuation request failed: %w", err)
		}
		a.log.Tokens(contResp.InputTokens, contResp.OutputTokens)

		content += contResp.Content
		if !contResp.WasTruncated() {
			break
		}
		if i == maxContinuations-1 {
			a.log.Warn("max continuations reached, response may be incomplete")
		}
	}

	return content, nil
}

var tikzFenceRe = regexp.MustCompile("(?s)```(?:latex|tex)?\n?(.*?)```")

// ExtractTikzBlock pulls the tikzpicture environment out of a fenced code
// block, or returns the trimmed text when no fence is present.
func ExtractTikzBlock(text string) string {
	if m := tikzFenceRe.FindStringSubmatch(text); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func logTail(log string, n int) string {
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}
