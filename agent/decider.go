// Decision making: one LLM call selecting the next tool.
//
// The LLM responds with a YAML block; validation of its shape happens here,
// not in the extraction layer, because required-key sets differ per use site.
//
// Information Hiding:
// - Decision prompt construction hidden
// - YAML extraction and validation hidden

package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coderttxi/invoicecopilot/internal/yamlblock"
	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/observability"
)

const decisionPromptTemplate = `You are a professional report and data visualization specialist. Given the following request, decide which tool to use from the available options.

Here are the actions you performed:
%s

Available tools:
1. generate_report: Create or edit professional reports with data visualizations, if charts are needed to complete the user request
   - Parameters: target_file, instructions, chart_description
     target_file: DynamicWorkspace.tsx (this file is in the working directory: %s)
     instructions: User request
     chart_description: A detailed description of the charts needed for the report.
   - Example:
     tool: generate_report
     reason: I need to create a professional report with real data, and charts are needed for the report, and insights.
     params:
       target_file: DynamicWorkspace.tsx
       instructions: User request
       chart_description: |
         Professional business report featuring:
         - Expense trends using LineChart from Recharts
         - Category breakdown using PieChart from Recharts
         - Monthly comparison using BarChart from Recharts
         - Key metrics cards with real numbers

2. answer_question: ONLY if the user wants to know specific information about the data, the request is simple and charts are not needed
   - Parameters: user_request
   - Example:
     tool: answer_question
     reason: I need to answer a specific question, and charts are not needed.
     params:
       user_request: User request

3. deflect: If the user request is not related to reports, charts, or statistics data
   - Parameters: user_request
   - Example:
     tool: deflect
     reason: I need to gently tell the user that I can only help with reports, charts, and statistics data.
     params:
       user_request: User request

4. search: Semantic search over the ingested document knowledge base
   - Parameters: query (required), namespace, top_k, category_filter, filename_filter
   - Example:
     tool: search
     reason: I need to find invoices mentioning a specific vendor before reporting on them.
     params:
       query: invoices from Acme Corp

5. finish: Complete the task and provide the final response
   - No parameters required
   - Example:
     tool: finish
     reason: I have successfully completed the user request.
     params: {}

Respond with a YAML object:
` + "```yaml" + `
tool: one of: generate_report, answer_question, deflect, search, finish
reason: |
  detailed explanation of why you chose this tool and what you intend to do
params:
  # parameters specific to the chosen tool
` + "```" + `

If you believe no more actions are needed, use "finish" as the tool and explain why in the reason.`

// decide asks the LLM to select the next action and validates the shape of
// its answer. Parse and validation failures are returned to the caller,
// which treats them as iteration-level errors.
func (a *Agent) decide(ctx context.Context, session observability.Session, wc model.WorkingContext, userQuery string, history []model.ActionRecord) (model.Decision, error) {
	systemPrompt := fmt.Sprintf(decisionPromptTemplate, FormatHistory(history), wc.WorkingDir)

	response, err := a.llm.Complete(ctx, systemPrompt, userQuery)
	if err != nil {
		return model.Decision{}, fmt.Errorf("decision call failed: %w", err)
	}
	a.tracker.RecordStep(session, "decide", "llm", userQuery, response)

	var decision model.Decision
	block, err := yamlblock.Decode(response, &decision)
	if err != nil {
		return model.Decision{}, err
	}
	a.logger.Debug("decision parsed",
		zap.String("tool", string(decision.Tool)),
		zap.String("strategy", string(block.Strategy)))

	if err := validateDecision(&decision); err != nil {
		return model.Decision{}, err
	}
	return decision, nil
}

// validateDecision enforces the decision contract: tool and reason are
// required; params are required for every tool except finish, where a
// missing params key is normalized to an empty mapping.
func validateDecision(d *model.Decision) error {
	if d.Tool == "" {
		return &ValidationError{Msg: "tool name is missing"}
	}
	if d.Reason == "" {
		return &ValidationError{Msg: "reason is missing"}
	}
	if d.Tool == model.ToolFinish {
		d.Params = model.Params{}
		return nil
	}
	if len(d.Params) == 0 {
		return &ValidationError{Msg: "parameters are missing"}
	}
	return nil
}
