// Client - simple wrapper around providers.

package llm

import "context"

// Client wraps a Provider with the two-prompt completion interface the
// orchestrator works against.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Complete sends a system prompt plus a user prompt and returns the
// response text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	response, err := c.provider.Chat(ctx, []ChatMessage{
		SystemMessage(systemPrompt),
		UserMessage(userPrompt),
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// CompleteWithUsage is Complete plus token usage when the provider reports it.
func (c *Client) CompleteWithUsage(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	response, err := c.provider.Chat(ctx, []ChatMessage{
		SystemMessage(systemPrompt),
		UserMessage(userPrompt),
	})
	if err != nil {
		return "", nil, err
	}
	return response.Content, response.Usage, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
