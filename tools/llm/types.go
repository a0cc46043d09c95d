package llm

import "time"

// Image is an inline image attachment for a message.
type Image struct {
	MediaType string
	Data      []byte
}

// Message represents a conversation message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Images  []Image
}

// RequestOptions configures an LLM request.
type RequestOptions struct {
	MaxTokens int
	// ForceJSON asks the provider for a raw JSON response where supported.
	ForceJSON bool
}

// Response from an LLM completion.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Model        string
	StopReason   string // "end_turn", "max_tokens", "stop_sequence"
}

// WasTruncated returns true if the response hit the token limit.
func (r *Response) WasTruncated() bool {
	return r.StopReason == "max_tokens"
}
