// Action implementations: the closed set of units of work the loop can
// dispatch to. Each consumes decision params plus the agent's collaborators
// and returns a structured result.
//
// Information Hiding:
// - Prompt content for each action hidden
// - Path resolution rules hidden
// - Edit-plan parsing and application hidden

package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/coderttxi/invoicecopilot/internal/yamlblock"
	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/patch"
	"github.com/coderttxi/invoicecopilot/observability"
	"github.com/coderttxi/invoicecopilot/search"
	"github.com/coderttxi/invoicecopilot/storage"
)

const defaultSearchTopK = 10

const reportSystemPromptTemplate = `You are a professional business report specialist. Your goal is to create comprehensive, data-driven reports with interactive charts using ONLY the Recharts library.

MANDATORY: ALWAYS REPLACE THE ENTIRE FILE CONTENT - NO PARTIAL EDITS

Current file content:
%s

Create a COMPLETE professional business report React component that REPLACES the entire file. Follow these guidelines:

1. MANDATORY: Replace the ENTIRE file from line 1
2. ONLY use the Recharts library for ALL charts (BarChart, LineChart, PieChart, AreaChart, ResponsiveContainer, etc.)
3. NEVER use Chart.js, D3, or any other chart library
4. Use ONLY the PROVIDED DATA - extract real totals, dates, and amounts from it
5. Include key metrics cards with REAL calculated values from the PROVIDED DATA
6. Make all charts interactive with tooltips, legends, and responsive design
7. NO sample or fake data whatsoever - only real calculated values
8. The file MUST start with these exact imports:
   import React from 'react';
   import { useApp } from '@/contexts/AppContext';
   import {
     BarChart, Bar, LineChart, Line, PieChart, Pie, Cell,
     XAxis, YAxis, CartesianGrid, Tooltip, Legend,
     ResponsiveContainer
   } from 'recharts';

Return a YAML object with a COMPLETE file replacement:

` + "```yaml" + `
reasoning: |
  Explanation of the report you are creating and the real metrics you extracted.
operations:
  - start_line: 1
    end_line: 200
    replacement: |
      import React from 'react';
      ...the complete new file content...
` + "```" + `

MANDATORY RULES:
- ALWAYS replace the entire file (start_line: 1, end_line: 200 or more lines as needed)
- The end_line must be a specific number, not "any quantity"`

// generateReport rewrites the workspace component with generated chart code.
// Parse and validation failures of the LLM's edit plan short-circuit with a
// failed result and zero operations; they do not surface as errors.
func (a *Agent) generateReport(ctx context.Context, session observability.Session, wc model.WorkingContext, params model.Params) (*model.ActionResult, error) {
	targetFile, err := stringParam(params, "target_file")
	if err != nil {
		return nil, err
	}
	instructions, err := stringParam(params, "instructions")
	if err != nil {
		return nil, err
	}
	chartDescription := optionalString(params, "chart_description")

	fullPath := resolveTarget(wc.WorkingDir, targetFile)
	a.logger.Info("editing report file",
		zap.String("target_file", targetFile), zap.String("resolved", fullPath))

	fileContent, ok := a.readCurrent(fullPath)
	if !ok {
		return &model.ActionResult{
			Success: false,
			Error:   fmt.Sprintf("failed to read file: %s", fullPath),
		}, nil
	}

	dataset := optionalString(params, "pre_supplied_data")
	if dataset == "" {
		dataset, err = a.loadDataset(ctx)
		if err != nil {
			return &model.ActionResult{Success: false, Error: err.Error()}, nil
		}
	}

	systemPrompt := fmt.Sprintf(reportSystemPromptTemplate, fileContent)
	userPrompt := fmt.Sprintf("USER REQUEST:\n%s\n\nREPORT REQUIREMENTS:\n%s\n\nPROVIDED DATA:\n%s",
		instructions, chartDescription, dataset)

	response, err := a.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	a.tracker.RecordStep(session, "generate_report", "llm", instructions, response)

	var plan model.EditPlan
	if _, err := yamlblock.Decode(response, &plan); err != nil {
		a.logger.Warn("edit plan parse failed", zap.Error(err))
		return &model.ActionResult{
			Success: false,
			Error:   fmt.Sprintf("error parsing edit operations: %v", err),
		}, nil
	}
	if err := validateEditPlan(&plan); err != nil {
		a.logger.Warn("edit plan validation failed", zap.Error(err))
		return &model.ActionResult{
			Success: false,
			Error:   fmt.Sprintf("error parsing edit operations: %v", err),
		}, nil
	}

	batch := a.patcher.ApplyPlan(fullPath, plan.Operations)
	return &model.ActionResult{
		Success:              batch.Success,
		Operations:           len(plan.Operations),
		SuccessfulOperations: batch.Successful,
		FailedOperations:     batch.Failed,
		OperationDetails:     batch.Outcomes,
		Reasoning:            plan.Reasoning,
	}, nil
}

// readCurrent reads the target with line numbers prepended for prompt
// context, matching the 1-based ranges the edit plan addresses. A missing
// file is fine: the patcher creates it, and the prompt simply shows an
// empty file.
func (a *Agent) readCurrent(path string) (string, bool) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", true
	}
	return patch.ReadNumbered(path)
}

// answerQuestion answers a data question from the loaded dataset, without
// charts. All failures are folded into the result so the caller can return
// the response text directly.
func (a *Agent) answerQuestion(ctx context.Context, session observability.Session, params model.Params) (*model.ActionResult, error) {
	userRequest, err := stringParam(params, "user_request")
	if err != nil {
		return nil, err
	}

	docs, err := a.store.Load(ctx)
	if err != nil {
		return answerFailure(fmt.Sprintf("Error processing request: %v", err)), nil
	}
	if len(docs) == 0 {
		return answerFailure("No invoice data found. Please upload some invoice files first."), nil
	}

	dataset, err := storage.MarshalDataset(docs)
	if err != nil {
		return answerFailure(fmt.Sprintf("Error processing request: %v", err)), nil
	}

	systemPrompt := `You are a professional report specialist. The user has made a simple request that doesn't require charts or complex visualizations.
Answer the user's request based on the provided processed data.

GUIDELINES:
- For math operations, like sums and averages, be accurate and precise
- Focus on providing the specific information requested
- Use only the real processed data
- Keep the response professional but straightforward
- No charts or visualizations needed
- Suggest next steps to the user when possible`

	userPrompt := fmt.Sprintf("User request: %s\n\nData processed: %s", userRequest, dataset)

	response, err := a.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		a.logger.Error("answer question call failed", zap.Error(err))
		return answerFailure(fmt.Sprintf("Error processing request: %v", err)), nil
	}
	a.tracker.RecordStep(session, "answer_question", "llm", userRequest, response)

	return &model.ActionResult{
		Success:     true,
		Response:    response,
		RequestType: "simple_report",
	}, nil
}

func answerFailure(msg string) *model.ActionResult {
	return &model.ActionResult{
		Success:     false,
		Response:    msg,
		RequestType: "simple_report",
	}
}

// deflect redirects a request outside the reporting scope.
func (a *Agent) deflect(ctx context.Context, session observability.Session, params model.Params) (*model.ActionResult, error) {
	userRequest, err := stringParam(params, "user_request")
	if err != nil {
		return nil, err
	}

	systemPrompt := `You are a professional report specialist. The user has made a request that is not directly related to reports, charts, or statistics data.

Please respond politely and professionally, explaining that you specialize in:
- Creating reports and data visualizations
- Analyzing invoice and financial data
- Generating charts and graphs with business insights
- Statistical analysis of business data

Gently redirect the conversation back to how you can help them with business reporting and data analysis tasks.`

	response, err := a.llm.Complete(ctx, systemPrompt, userRequest)
	if err != nil {
		return nil, err
	}
	a.tracker.RecordStep(session, "deflect", "llm", userRequest, response)

	return &model.ActionResult{
		Success:     true,
		Response:    response,
		RequestType: "other_request",
	}, nil
}

// searchKnowledge runs a semantic search over the knowledge base and
// produces both the raw hits summary and a formatted textual rendering.
func (a *Agent) searchKnowledge(ctx context.Context, session observability.Session, params model.Params) (*model.ActionResult, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	if a.searcher == nil {
		return &model.ActionResult{
			Success: false,
			Error:   "semantic search is not configured",
		}, nil
	}

	namespace := optionalString(params, "namespace")
	if namespace == "" {
		namespace = a.namespace
	}
	topK := optionalInt(params, "top_k", defaultSearchTopK)

	category := optionalString(params, "category_filter")
	filename := optionalString(params, "filename_filter")
	if category != "" && filename != "" {
		return nil, &ValidationError{Msg: "category_filter and filename_filter are mutually exclusive"}
	}
	var filter *search.Filter
	if category != "" || filename != "" {
		filter = &search.Filter{Category: category, Filename: filename}
	}

	hits, err := a.searcher.Search(ctx, query, namespace, topK, filter)
	if err != nil {
		return nil, err
	}
	formatted := search.FormatHits(hits)
	a.tracker.RecordStep(session, "search", "tool", query, formatted)

	return &model.ActionResult{
		Success:   true,
		HitCount:  len(hits),
		Query:     query,
		Namespace: namespace,
		Formatted: formatted,
	}, nil
}

// loadDataset loads all available documents and renders them for a prompt.
func (a *Agent) loadDataset(ctx context.Context) (string, error) {
	docs, err := a.store.Load(ctx)
	if err != nil {
		return "", err
	}
	return storage.MarshalDataset(docs)
}

// resolveTarget resolves a target file against the working directory.
// A working directory rooted under the frontend project is re-anchored at
// the project root when the process runs from a sibling backend directory.
func resolveTarget(workingDir, targetFile string) string {
	if filepath.IsAbs(targetFile) || workingDir == "" {
		abs, err := filepath.Abs(targetFile)
		if err != nil {
			return targetFile
		}
		return abs
	}

	var full string
	if strings.HasPrefix(workingDir, "frontend/") && !filepath.IsAbs(workingDir) {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		projectRoot := cwd
		if strings.HasSuffix(cwd, "/backend") {
			projectRoot = filepath.Dir(cwd)
		}
		full = filepath.Join(projectRoot, workingDir, targetFile)
	} else {
		full = filepath.Join(workingDir, targetFile)
	}

	abs, err := filepath.Abs(full)
	if err != nil {
		return full
	}
	return abs
}

// validateEditPlan checks the shape of a decoded edit plan. Range legality
// beyond presence is the patcher's job.
func validateEditPlan(plan *model.EditPlan) error {
	if plan.Reasoning == "" {
		return &ValidationError{Msg: "reasoning is missing"}
	}
	if len(plan.Operations) == 0 {
		return &ValidationError{Msg: "operations are missing"}
	}
	for i, op := range plan.Operations {
		if op.StartLine < 1 {
			return &ValidationError{Msg: fmt.Sprintf("operation %d: start_line is missing or invalid", i+1)}
		}
		if op.EndLine < op.StartLine {
			return &ValidationError{Msg: fmt.Sprintf("operation %d: end_line is missing or invalid", i+1)}
		}
		if op.Replacement == "" {
			return &ValidationError{Msg: fmt.Sprintf("operation %d: replacement is missing", i+1)}
		}
	}
	return nil
}

// Param extraction helpers. YAML decodes scalars as interface{} values, so
// numeric params may arrive as int or float64.

func stringParam(params model.Params, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", &MissingParameterError{Name: name}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &MissingParameterError{Name: name}
	}
	return s, nil
}

func optionalString(params model.Params, name string) string {
	if v, ok := params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func optionalInt(params model.Params, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
