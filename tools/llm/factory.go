package llm

import (
	"fmt"
	"time"
)

// NewClient returns the provider client selected by name. Providers are
// chosen by configuration, not by editing source.
func NewClient(provider, apiKey, model string, timeout time.Duration) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", provider)
	}
	switch provider {
	case "anthropic":
		return NewAnthropicClient(apiKey, model, timeout), nil
	case "gemini":
		return NewGeminiClient(apiKey, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic or gemini)", provider)
	}
}
