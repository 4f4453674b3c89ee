// Package model provides domain types shared across packages.
package model

import "time"

// Tool identifies one concrete unit of work the orchestrator can perform.
type Tool string

const (
	// ToolGenerateReport rewrites the workspace UI file with generated chart code.
	ToolGenerateReport Tool = "generate_report"
	// ToolAnswerQuestion answers a data question directly, without charts.
	ToolAnswerQuestion Tool = "answer_question"
	// ToolDeflect redirects a request outside the reporting scope.
	ToolDeflect Tool = "deflect"
	// ToolSearch runs a semantic search over the knowledge base.
	ToolSearch Tool = "search"
	// ToolFinish terminates the loop and triggers final synthesis.
	ToolFinish Tool = "finish"
	// ToolError marks a history entry recorded when an iteration failed.
	ToolError Tool = "error"
)

// Params holds tool-specific parameters as decoded from the LLM's decision.
type Params map[string]interface{}

// Decision is the parsed output of one decision-making call.
type Decision struct {
	Tool   Tool   `yaml:"tool"`
	Reason string `yaml:"reason"`
	Params Params `yaml:"params"`
}

// OperationOutcome is the result of applying a single edit operation.
type OperationOutcome struct {
	Success bool
	Message string
}

// ActionResult is the outcome of executing one action.
// Success is always meaningful; the remaining fields are tool-specific and
// zero-valued when they don't apply.
type ActionResult struct {
	Success bool

	// Error holds the failure message for error records and failed actions.
	Error string

	// Direct-answer actions (simple_report, other_request).
	Response    string
	RequestType string

	// File-edit action.
	Operations           int
	SuccessfulOperations int
	FailedOperations     int
	OperationDetails     []OperationOutcome
	Reasoning            string

	// Knowledge-base search action.
	HitCount  int
	Query     string
	Namespace string
	Formatted string
}

// ActionRecord is one entry in the execution history. It is created right
// after a decision is made, before execution; Result is attached once the
// action has run. The history slice is owned by a single ProcessRequest call.
type ActionRecord struct {
	Tool      Tool
	Reason    string
	Params    Params
	Result    *ActionResult
	Timestamp time.Time
}

// EditOperation is one instruction to replace an inclusive, 1-indexed line
// range of a file with new text.
type EditOperation struct {
	StartLine   int    `yaml:"start_line"`
	EndLine     int    `yaml:"end_line"`
	Replacement string `yaml:"replacement"`
}

// EditPlan is the structured edit response produced by the file-editing
// action's LLM call. Operations keep the LLM's insertion order; the patcher
// re-orders them before application.
type EditPlan struct {
	Reasoning  string          `yaml:"reasoning"`
	Operations []EditOperation `yaml:"operations"`
}

// WorkingContext is the immutable per-request bundle threaded through one
// ProcessRequest invocation.
type WorkingContext struct {
	WorkingDir    string
	MaxIterations int
	TraceID       string
}
