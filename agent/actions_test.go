package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/search"
)

func TestResolveTargetAbsolute(t *testing.T) {
	got := resolveTarget("/some/dir", "/abs/file.tsx")
	if got != "/abs/file.tsx" {
		t.Errorf("absolute target must be kept as-is, got %q", got)
	}
}

func TestResolveTargetPlainWorkingDir(t *testing.T) {
	dir := t.TempDir()
	got := resolveTarget(dir, "file.tsx")
	if got != filepath.Join(dir, "file.tsx") {
		t.Errorf("expected join with working dir, got %q", got)
	}
}

func TestResolveTargetFrontendReanchor(t *testing.T) {
	got := resolveTarget("frontend/src/components", "file.tsx")
	if !strings.HasSuffix(got, filepath.Join("frontend", "src", "components", "file.tsx")) {
		t.Errorf("expected frontend path preserved, got %q", got)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute resolution, got %q", got)
	}
}

func TestValidateEditPlan(t *testing.T) {
	valid := model.EditPlan{
		Reasoning: "full replacement",
		Operations: []model.EditOperation{
			{StartLine: 1, EndLine: 200, Replacement: "content"},
		},
	}
	if err := validateEditPlan(&valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name string
		plan model.EditPlan
	}{
		{"missing reasoning", model.EditPlan{Operations: valid.Operations}},
		{"missing operations", model.EditPlan{Reasoning: "r"}},
		{"missing start_line", model.EditPlan{Reasoning: "r", Operations: []model.EditOperation{{EndLine: 5, Replacement: "x"}}}},
		{"end before start", model.EditPlan{Reasoning: "r", Operations: []model.EditOperation{{StartLine: 5, EndLine: 2, Replacement: "x"}}}},
		{"missing replacement", model.EditPlan{Reasoning: "r", Operations: []model.EditOperation{{StartLine: 1, EndLine: 5}}}},
	}
	for _, tc := range cases {
		var verr *ValidationError
		if err := validateEditPlan(&tc.plan); !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestParamHelpers(t *testing.T) {
	params := model.Params{
		"query":  "acme",
		"top_k":  5,
		"ratio":  2.0,
		"empty":  "",
		"number": 7,
	}

	if v, err := stringParam(params, "query"); err != nil || v != "acme" {
		t.Errorf("stringParam(query) = %q, %v", v, err)
	}
	if _, err := stringParam(params, "missing"); err == nil {
		t.Error("expected error for missing param")
	}
	if _, err := stringParam(params, "empty"); err == nil {
		t.Error("expected error for empty string param")
	}
	if _, err := stringParam(params, "number"); err == nil {
		t.Error("expected error for non-string param")
	}

	if got := optionalInt(params, "top_k", 10); got != 5 {
		t.Errorf("optionalInt(top_k) = %d", got)
	}
	if got := optionalInt(params, "ratio", 10); got != 2 {
		t.Errorf("optionalInt(ratio) = %d", got)
	}
	if got := optionalInt(params, "missing", 10); got != 10 {
		t.Errorf("optionalInt fallback = %d", got)
	}
}

func TestSearchKnowledgeUnconfigured(t *testing.T) {
	a := newTestAgent(&scriptedProvider{}, "")
	result, err := a.searchKnowledge(context.Background(), a.tracker.BeginSession(context.Background(), "test"),
		model.Params{"query": "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected failure when search is not configured")
	}
}

func TestSearchKnowledgeExclusiveFilters(t *testing.T) {
	a := newTestAgent(&scriptedProvider{}, "").WithSearcher(stubSearcher{}, "ns")
	_, err := a.searchKnowledge(context.Background(), a.tracker.BeginSession(context.Background(), "test"),
		model.Params{"query": "acme", "category_filter": "invoices", "filename_filter": "a.pdf"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for conflicting filters, got %v", err)
	}
}

func TestSearchKnowledgeDefaults(t *testing.T) {
	s := &recordingSearcher{}
	a := newTestAgent(&scriptedProvider{}, "").WithSearcher(s, "default-ns")
	result, err := a.searchKnowledge(context.Background(), a.tracker.BeginSession(context.Background(), "test"),
		model.Params{"query": "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if s.namespace != "default-ns" {
		t.Errorf("expected configured namespace, got %q", s.namespace)
	}
	if s.topK != defaultSearchTopK {
		t.Errorf("expected default top_k %d, got %d", defaultSearchTopK, s.topK)
	}
	if result.Namespace != "default-ns" || result.Query != "acme" {
		t.Errorf("unexpected result metadata: %+v", result)
	}
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query, namespace string, topK int, filter *search.Filter) ([]search.Hit, error) {
	return nil, nil
}

type recordingSearcher struct {
	namespace string
	topK      int
}

func (r *recordingSearcher) Search(ctx context.Context, query, namespace string, topK int, filter *search.Filter) ([]search.Hit, error) {
	r.namespace = namespace
	r.topK = topK
	return []search.Hit{{ID: "1", Score: 0.9, Metadata: map[string]string{"content": "acme invoice"}}}, nil
}
