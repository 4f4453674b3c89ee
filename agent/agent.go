// Orchestration loop implementation.
//
// This is THE canonical decision/action loop. All request processing goes
// through this module: decide, execute, record, repeat, synthesize.
//
// Information Hiding:
// - Loop state machine hidden
// - Tool dispatch hidden
// - Tracing session lifecycle hidden

package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coderttxi/invoicecopilot/llm"
	"github.com/coderttxi/invoicecopilot/model"
	"github.com/coderttxi/invoicecopilot/observability"
	"github.com/coderttxi/invoicecopilot/patch"
	"github.com/coderttxi/invoicecopilot/search"
	"github.com/coderttxi/invoicecopilot/storage"
)

// agentName identifies this agent in tracing sessions.
const agentName = "invoice-copilot"

// defaultMaxIterations bounds the loop when the caller passes no limit.
const defaultMaxIterations = 3

// Agent orchestrates the decision/action loop for one request at a time.
// Safe for concurrent use: each ProcessRequest call owns its own history,
// and the collaborators are themselves safe under concurrent callers.
type Agent struct {
	llm        *llm.Client
	patcher    *patch.Patcher
	store      storage.DocumentStore
	searcher   search.Searcher
	tracker    observability.Tracker
	logger     *zap.Logger
	workingDir string
	namespace  string
}

// New creates an agent with the given LLM client and working directory.
// The document store defaults to an empty in-memory store, the tracker to a
// no-op, and search to unconfigured until set via the With methods.
func New(client *llm.Client, workingDir string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		llm:        client,
		patcher:    patch.New(logger),
		store:      storage.NewMemoryStore(nil),
		tracker:    observability.NoopTracker{},
		logger:     logger,
		workingDir: workingDir,
	}
}

// WithStore sets the document store used by data-answering actions.
func (a *Agent) WithStore(store storage.DocumentStore) *Agent {
	a.store = store
	return a
}

// WithSearcher enables the knowledge-base search action.
func (a *Agent) WithSearcher(searcher search.Searcher, namespace string) *Agent {
	a.searcher = searcher
	a.namespace = namespace
	return a
}

// WithTracker sets the observability tracker.
func (a *Agent) WithTracker(tracker observability.Tracker) *Agent {
	a.tracker = tracker
	return a
}

// ProcessRequest runs the full decision/action loop for one user request and
// returns the final user-facing text. The loop terminates via an explicit
// finish decision, a direct-answer short-circuit, a decision failure, or
// iteration exhaustion; the last two still synthesize from partial history
// so the user always gets some answer.
func (a *Agent) ProcessRequest(ctx context.Context, userQuery string, maxIterations int) (string, error) {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	a.logger.Info("processing request",
		zap.String("query", userQuery), zap.Int("max_iterations", maxIterations))

	// Tracing is cosmetic: failures inside the tracker never block the loop.
	session := a.tracker.BeginSession(ctx, agentName)
	wc := model.WorkingContext{
		WorkingDir:    a.workingDir,
		MaxIterations: maxIterations,
		TraceID:       session.ID,
	}
	var history []model.ActionRecord

	for iteration := 0; iteration < maxIterations; iteration++ {
		a.logger.Info("iteration",
			zap.Int("current", iteration+1), zap.Int("max", maxIterations))

		decision, err := a.decide(ctx, session, wc, userQuery, history)
		if err != nil {
			// A decision failure means the loop cannot know what to do
			// next; record it and stop deciding.
			a.logger.Error("decision failed", zap.Error(err))
			history = append(history, model.ActionRecord{
				Tool:      model.ToolError,
				Reason:    fmt.Sprintf("Internal error: %v", err),
				Params:    model.Params{},
				Result:    &model.ActionResult{Success: false, Error: err.Error()},
				Timestamp: time.Now(),
			})
			break
		}

		history = append(history, model.ActionRecord{
			Tool:      decision.Tool,
			Reason:    decision.Reason,
			Params:    decision.Params,
			Timestamp: time.Now(),
		})
		record := &history[len(history)-1]

		if decision.Tool == model.ToolFinish {
			a.logger.Info("finishing and generating response")
			text, err := a.synthesize(ctx, session, history, userQuery)
			if err != nil {
				// The retry after the loop sees the failure in its history.
				a.logger.Error("synthesis failed", zap.Error(err))
				history = append(history, model.ActionRecord{
					Tool:      model.ToolError,
					Reason:    fmt.Sprintf("Internal error: %v", err),
					Params:    model.Params{},
					Result:    &model.ActionResult{Success: false, Error: err.Error()},
					Timestamp: time.Now(),
				})
				break
			}
			a.tracker.EndSession(session)
			return text, nil
		}

		result, err := a.executeTool(ctx, session, wc, decision.Tool, decision.Params)
		if err != nil {
			a.logger.Error("action failed",
				zap.String("tool", string(decision.Tool)), zap.Error(err))
			record.Result = &model.ActionResult{Success: false, Error: err.Error()}
			continue
		}
		record.Result = result

		// Direct-answer actions are self-sufficient single-shot answers,
		// not steps toward a larger plan: return their response without
		// synthesis.
		if decision.Tool == model.ToolAnswerQuestion || decision.Tool == model.ToolDeflect {
			if result.Success && result.Response != "" {
				a.tracker.EndSession(session)
				return result.Response, nil
			}
			text, err := a.synthesize(ctx, session, history, userQuery)
			a.tracker.EndSession(session)
			return text, err
		}
	}

	// Iterations exhausted or decision failure: graceful degradation,
	// partial history is still informative to the user.
	a.logger.Warn("loop ended without finish", zap.Int("history_len", len(history)))
	text, err := a.synthesize(ctx, session, history, userQuery)
	a.tracker.EndSession(session)
	return text, err
}

// executeTool dispatches one decision to its action. An unrecognized tool
// is a failed result, not an error: the loop continues, and the user may
// still get a degraded-but-useful synthesized response.
func (a *Agent) executeTool(ctx context.Context, session observability.Session, wc model.WorkingContext, tool model.Tool, params model.Params) (*model.ActionResult, error) {
	switch tool {
	case model.ToolGenerateReport:
		return a.generateReport(ctx, session, wc, params)
	case model.ToolAnswerQuestion:
		return a.answerQuestion(ctx, session, params)
	case model.ToolDeflect:
		return a.deflect(ctx, session, params)
	case model.ToolSearch:
		return a.searchKnowledge(ctx, session, params)
	default:
		a.logger.Error("unknown tool", zap.String("tool", string(tool)))
		return &model.ActionResult{
			Success: false,
			Error:   fmt.Sprintf("Unknown tool: %s", tool),
		}, nil
	}
}
