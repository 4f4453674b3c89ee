package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coderttxi/invoicecopilot/llm"
	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/observability"
	"github.com/coderttxi/invoicecopilot/storage"
)

// scriptedProvider replays canned responses and records every prompt pair.
type scriptedProvider struct {
	responses     []string
	calls         int
	systemPrompts []string
	userPrompts   []string
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "scripted-model" }

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	for _, m := range messages {
		switch m.Role {
		case "system":
			s.systemPrompts = append(s.systemPrompts, m.Content)
		case "user":
			s.userPrompts = append(s.userPrompts, m.Content)
		}
	}
	if s.calls >= len(s.responses) {
		return llm.Response{}, fmt.Errorf("no scripted response for call %d", s.calls+1)
	}
	response := s.responses[s.calls]
	s.calls++
	return llm.Response{Content: response}, nil
}

// flakyProvider fails one specific call and otherwise replays its script.
type flakyProvider struct {
	scriptedProvider
	failOn int
}

func (f *flakyProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	f.calls++
	if f.calls == f.failOn {
		return llm.Response{}, fmt.Errorf("scripted failure on call %d", f.calls)
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			f.systemPrompts = append(f.systemPrompts, m.Content)
		case "user":
			f.userPrompts = append(f.userPrompts, m.Content)
		}
	}
	if f.calls > len(f.responses) {
		return llm.Response{}, fmt.Errorf("no scripted response for call %d", f.calls)
	}
	return llm.Response{Content: f.responses[f.calls-1]}, nil
}

// sequenceTracker records the order of tracker calls.
type sequenceTracker struct {
	events []string
}

func (s *sequenceTracker) BeginSession(ctx context.Context, agentName string) observability.Session {
	s.events = append(s.events, "begin")
	return observability.Session{ID: "seq"}
}

func (s *sequenceTracker) EndSession(observability.Session) {
	s.events = append(s.events, "end")
}

func (s *sequenceTracker) RecordStep(_ observability.Session, stepName, _, _, _ string) {
	s.events = append(s.events, "step:"+stepName)
}

func newTestAgent(provider *scriptedProvider, workingDir string) *Agent {
	return New(llm.NewClient(provider), workingDir, nil)
}

func sampleDocs() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"invoice1.json": json.RawMessage(`{"total": 150.0, "vendor": "Acme"}`),
	}
}

func TestProcessRequestFinish(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```yaml\ntool: finish\nreason: nothing to do\n```",
		"All done.",
	}}
	a := newTestAgent(provider, "")

	result, err := a.ProcessRequest(context.Background(), "hello", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "All done." {
		t.Errorf("expected synthesized response, got %q", result)
	}
	// Exactly one decision call plus one synthesis call.
	if provider.calls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", provider.calls)
	}
}

func TestProcessRequestShortCircuit(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```yaml\ntool: answer_question\nreason: simple data question\nparams:\n  user_request: total?\n```",
		"R",
	}}
	a := newTestAgent(provider, "").WithStore(storage.NewMemoryStore(sampleDocs()))

	result, err := a.ProcessRequest(context.Background(), "total?", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "R" {
		t.Errorf("expected direct response %q, got %q", "R", result)
	}
	// Decision plus answer; no synthesis call.
	if provider.calls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", provider.calls)
	}
}

func TestProcessRequestExhaustion(t *testing.T) {
	dir := t.TempDir()
	decision := "```yaml\ntool: generate_report\nreason: charts needed\nparams:\n  target_file: DynamicWorkspace.tsx\n  instructions: build the report\n  pre_supplied_data: '{}'\n```"
	plan := "```yaml\nreasoning: full replacement\noperations:\n  - start_line: 1\n    end_line: 200\n    replacement: |\n      export function DynamicWorkspace() { return null; }\n```"

	provider := &scriptedProvider{responses: []string{
		decision, plan,
		decision, plan,
		"Partial summary.",
	}}
	a := newTestAgent(provider, dir)

	result, err := a.ProcessRequest(context.Background(), "make a report", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Partial summary." {
		t.Errorf("expected synthesis from partial history, got %q", result)
	}
	// Two decisions, two edit plans, one synthesis.
	if provider.calls != 5 {
		t.Errorf("expected 5 LLM calls, got %d", provider.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "DynamicWorkspace.tsx")); err != nil {
		t.Errorf("expected target file to be written: %v", err)
	}
}

func TestProcessRequestUnknownTool(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```yaml\ntool: delete_everything\nreason: chaos\nparams:\n  target: all\n```",
		"```yaml\ntool: finish\nreason: giving up\n```",
		"Nothing destructive happened.",
	}}
	a := newTestAgent(provider, "")

	result, err := a.ProcessRequest(context.Background(), "delete everything", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Nothing destructive happened." {
		t.Errorf("unexpected result: %q", result)
	}
	// The failed record shows up in the next decision prompt.
	second := provider.systemPrompts[1]
	if !strings.Contains(second, "delete_everything") {
		t.Errorf("expected history to mention the unknown tool:\n%s", second)
	}
	if !strings.Contains(second, "Failed") {
		t.Errorf("expected history to mark the unknown tool as failed:\n%s", second)
	}
}

func TestProcessRequestDecisionFailureBreaks(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I refuse to answer in YAML.",
		"Something went wrong, here is what I know.",
	}}
	a := newTestAgent(provider, "")

	result, err := a.ProcessRequest(context.Background(), "hello", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Something went wrong, here is what I know." {
		t.Errorf("expected synthesis over error history, got %q", result)
	}
	// One failed decision, then straight to synthesis despite 5 iterations.
	if provider.calls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", provider.calls)
	}
	synthesis := provider.systemPrompts[1]
	if !strings.Contains(synthesis, "- Tool: error") {
		t.Errorf("expected error record in synthesis prompt:\n%s", synthesis)
	}
}

func TestProcessRequestEmptyDatasetNoAnswerCall(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```yaml\ntool: answer_question\nreason: data question\nparams:\n  user_request: total?\n```",
		"There is no data yet.",
	}}
	a := newTestAgent(provider, "") // default store is empty

	result, err := a.ProcessRequest(context.Background(), "total?", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Canned failure skips the answer LLM call and falls through to synthesis.
	if result != "There is no data yet." {
		t.Errorf("unexpected result: %q", result)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 LLM calls (decision + synthesis), got %d", provider.calls)
	}
}

func TestProcessRequestFinishSynthesisFailureRetries(t *testing.T) {
	provider := &flakyProvider{
		scriptedProvider: scriptedProvider{responses: []string{
			"```yaml\ntool: finish\nreason: nothing to do\n```",
			"", // failing synthesis attempt
			"Recovered summary.",
		}},
		failOn: 2,
	}
	a := New(llm.NewClient(provider), "", nil)

	result, err := a.ProcessRequest(context.Background(), "hello", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Recovered summary." {
		t.Errorf("expected retried synthesis result, got %q", result)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 LLM calls, got %d", provider.calls)
	}
	// The retry prompt carries the synthesis failure as its own history entry.
	retry := provider.systemPrompts[len(provider.systemPrompts)-1]
	if !strings.Contains(retry, "- Tool: error") {
		t.Errorf("expected error record in retry prompt:\n%s", retry)
	}
	if !strings.Contains(retry, "Internal error:") {
		t.Errorf("expected failure reason in retry prompt:\n%s", retry)
	}
}

func TestProcessRequestRecordsSynthesisBeforeSessionEnd(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```yaml\ntool: answer_question\nreason: data question\nparams:\n  user_request: total?\n```",
		"Fallback summary.",
	}}
	tracker := &sequenceTracker{}
	a := newTestAgent(provider, "").WithTracker(tracker) // empty store forces the fallback

	if _, err := a.ProcessRequest(context.Background(), "total?", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"begin", "step:decide", "step:synthesize", "end"}
	if len(tracker.events) != len(want) {
		t.Fatalf("unexpected events: %v", tracker.events)
	}
	for i, e := range want {
		if tracker.events[i] != e {
			t.Fatalf("event %d = %q, want %q (all: %v)", i, tracker.events[i], e, tracker.events)
		}
	}
}

func TestGenerateReportPromptNumbersLines(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Report.tsx")
	if err := os.WriteFile(target, []byte("const a = 1;\nconst b = 2;\n"), 0644); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}

	plan := "```yaml\nreasoning: full replacement\noperations:\n  - start_line: 1\n    end_line: 200\n    replacement: |\n      export function Report() { return null; }\n```"
	provider := &scriptedProvider{responses: []string{plan}}
	a := newTestAgent(provider, dir)

	result, err := a.generateReport(context.Background(),
		a.tracker.BeginSession(context.Background(), "test"),
		model.WorkingContext{WorkingDir: dir},
		map[string]interface{}{
			"target_file":       "Report.tsx",
			"instructions":      "rebuild the report",
			"pre_supplied_data": "{}",
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	// The prompt shows the file the way the edit ranges address it.
	prompt := provider.systemPrompts[0]
	if !strings.Contains(prompt, "1: const a = 1;\n2: const b = 2;\n") {
		t.Errorf("expected numbered file content in prompt:\n%s", prompt)
	}
}

func TestAnswerQuestionEmptyStore(t *testing.T) {
	a := newTestAgent(&scriptedProvider{}, "")
	result, err := a.answerQuestion(context.Background(), a.tracker.BeginSession(context.Background(), "test"),
		map[string]interface{}{"user_request": "total?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected failure for empty dataset")
	}
	if result.Response != "No invoice data found. Please upload some invoice files first." {
		t.Errorf("unexpected canned response: %q", result.Response)
	}
	if result.RequestType != "simple_report" {
		t.Errorf("unexpected request type: %q", result.RequestType)
	}
}

func TestAnswerQuestionMissingParameter(t *testing.T) {
	a := newTestAgent(&scriptedProvider{}, "")
	_, err := a.answerQuestion(context.Background(), a.tracker.BeginSession(context.Background(), "test"),
		map[string]interface{}{})
	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingParameterError, got %v", err)
	}
	if missing.Name != "user_request" {
		t.Errorf("unexpected parameter name: %q", missing.Name)
	}
}
