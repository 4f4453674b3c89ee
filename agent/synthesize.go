// Final response synthesis over the accumulated history.

package agent

import (
	"context"
	"fmt"

	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/observability"
)

const synthesisPromptTemplate = `You are a professional report and data visualization specialist. You have just performed a series of actions based on the user's request. Summarize what you did in a clear, helpful response to the user.

Here are the actions you performed:
%s

Generate a professional and informative response that explains:
1. What actions were taken
2. Respond briefly to the user request
3. Any next steps the user might want to take

IMPORTANT:
- Write as if you are directly speaking to the user`

// synthesize produces the final user-facing narrative from the history.
// An empty history yields a fixed sentinel without an LLM call.
func (a *Agent) synthesize(ctx context.Context, session observability.Session, history []model.ActionRecord, userQuery string) (string, error) {
	if len(history) == 0 {
		return "No actions were performed.", nil
	}

	systemPrompt := fmt.Sprintf(synthesisPromptTemplate, FormatHistory(history))
	response, err := a.llm.Complete(ctx, systemPrompt, userQuery)
	if err != nil {
		return "", fmt.Errorf("response synthesis failed: %w", err)
	}
	a.tracker.RecordStep(session, "synthesize", "llm", userQuery, response)
	return response, nil
}
