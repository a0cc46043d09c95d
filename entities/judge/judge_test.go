package judge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketch2fig/tools/llm"
	"sketch2fig/tools/logger"
)

// fakeClient replays scripted responses and records every request.
type fakeClient struct {
	responses []string
	calls     int
	requests  [][]llm.Message
}

func (f *fakeClient) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, opts *llm.RequestOptions) (*llm.Response, error) {
	return f.CompleteWithRetry(ctx, systemPrompt, messages, 1, opts)
}

func (f *fakeClient) CompleteWithRetry(ctx context.Context, systemPrompt string, messages []llm.Message, maxRetries int, opts *llm.RequestOptions) (*llm.Response, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, messages)
	return &llm.Response{Content: f.responses[i], StopReason: "end_turn"}, nil
}

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0644))
	return path
}

func newTestJudge(t *testing.T, client llm.Client, threshold float64) *Judge {
	t.Helper()
	j, err := New(client, threshold, logger.Nop())
	require.NoError(t, err)
	return j
}

const validVerdict = `{
  "scores": {"completeness": 8, "structural_match": 8, "text_accuracy": 8, "aesthetic_quality": 8},
  "issues": []
}`

func TestEvaluateComputesOverall(t *testing.T) {
	client := &fakeClient{responses: []string{validVerdict}}
	j := newTestJudge(t, client, 8.0)

	eval, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	require.NoError(t, err)

	// 0.30*8 + 0.25*8 + 0.20*8 + 0.15*8 + 1.0 compilability share
	assert.Equal(t, 8.2, eval.Scores.Overall)
	assert.True(t, eval.Pass)
	assert.Equal(t, 1, client.calls)
}

func TestEvaluateIgnoresModelSuppliedOverall(t *testing.T) {
	client := &fakeClient{responses: []string{`{
  "scores": {"completeness": 4, "structural_match": 4, "text_accuracy": 4, "aesthetic_quality": 4, "overall": 9.9},
  "issues": []
}`}}
	j := newTestJudge(t, client, 8.0)

	eval, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	require.NoError(t, err)

	assert.Equal(t, 4.6, eval.Scores.Overall)
	assert.False(t, eval.Pass)
}

func TestEvaluateMajorIssueBlocksPass(t *testing.T) {
	client := &fakeClient{responses: []string{`{
  "scores": {"completeness": 9, "structural_match": 9, "text_accuracy": 9, "aesthetic_quality": 9},
  "issues": [{"severity": "major", "category": "missing_element", "description": "legend is absent"}]
}`}}
	j := newTestJudge(t, client, 8.0)

	eval, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	require.NoError(t, err)

	assert.Equal(t, 9.1, eval.Scores.Overall)
	assert.False(t, eval.Pass)
}

func TestEvaluateAcceptsFencedJSON(t *testing.T) {
	client := &fakeClient{responses: []string{"```json\n" + validVerdict + "\n```"}}
	j := newTestJudge(t, client, 8.0)

	eval, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	require.NoError(t, err)
	assert.True(t, eval.Pass)
}

func TestEvaluateStrictRetryRecovers(t *testing.T) {
	client := &fakeClient{responses: []string{
		"The figure looks quite good overall, I'd say around an 8.",
		validVerdict,
	}}
	j := newTestJudge(t, client, 8.0)

	eval, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	require.NoError(t, err)
	assert.True(t, eval.Pass)
	assert.Equal(t, 2, client.calls)

	// The retry carries the malformed response back as assistant context.
	retry := client.requests[1]
	require.Len(t, retry, 3)
	assert.Equal(t, "assistant", retry[1].Role)
	assert.Contains(t, retry[1].Content, "quite good")
}

func TestEvaluateInvalidAfterRetry(t *testing.T) {
	client := &fakeClient{responses: []string{
		"not json",
		`{"scores": {"completeness": 8}, "issues": []}`,
	}}
	j := newTestJudge(t, client, 8.0)

	_, err := j.Evaluate(context.Background(), writeTestImage(t, "orig.png"), writeTestImage(t, "rend.png"))
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 2, client.calls)
}

func TestEvaluateMissingImage(t *testing.T) {
	client := &fakeClient{responses: []string{validVerdict}}
	j := newTestJudge(t, client, 8.0)

	_, err := j.Evaluate(context.Background(), "/nonexistent/orig.png", writeTestImage(t, "rend.png"))
	assert.Error(t, err)
	assert.Zero(t, client.calls)
}

func TestIsPass(t *testing.T) {
	assert.True(t, isPass(8.0, 8.0, nil))
	assert.False(t, isPass(7.99, 8.0, nil))
	assert.False(t, isPass(9.5, 8.0, []Issue{{Severity: "major"}}))
	assert.True(t, isPass(8.5, 8.0, []Issue{{Severity: "minor"}, {Severity: "minor"}}))
}

func TestStripJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripJSONFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripJSONFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripJSONFences(`  {"a":1}  `))
}
