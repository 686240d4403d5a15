// Package relay drives conversations between connected users and the
// inference provider: the bounded tool-calling loop, the per-connection
// session store and the session manager binding both to a transport.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/sealor/chat-relay/pkg/chat"
	"github.com/sealor/chat-relay/pkg/gateway"
	"github.com/sealor/chat-relay/pkg/tooling"
)

// DefaultMaxTurns bounds provider round-trips within one user turn.
const DefaultMaxTurns = 6

// loop states; the loop only terminates through stateDone or
// stateExhausted.
type loopState int

const (
	stateAwaiting loopState = iota
	stateDispatching
	stateDone
	stateExhausted
)

// Orchestrator runs one user turn to completion: it calls the gateway,
// dispatches requested tool calls and folds their results back into
// history until the model produces a final reply or the turn budget is
// spent. An Orchestrator is stateless across calls and safe to share.
type Orchestrator struct {
	Gateway  gateway.Gateway
	Registry *tooling.Registry
	MaxTurns int
	Logger   *slog.Logger
}

// Turn is the terminal result of one orchestration run. History is the
// extended history including every message appended during the run.
// Exhausted marks a run that hit the turn budget without a final reply;
// Text is then empty and the caller must synthesize a fallback.
type Turn struct {
	Text      string
	Exhausted bool
	History   []openai.ChatCompletionMessageParamUnion
}

// Run executes the loop over the given history. On error the returned
// Turn still carries the history up to the last successful append, so
// the caller can preserve session state.
func (o *Orchestrator) Run(ctx context.Context, history []openai.ChatCompletionMessageParamUnion) (Turn, error) {
	tools := o.Registry.Schemas()

	maxTurns := o.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	var (
		state   = stateAwaiting
		turns   int
		outcome gateway.Outcome
	)

	for {
		switch state {
		case stateAwaiting:
			var err error
			outcome, err = o.Gateway.Infer(ctx, history, tools)
			if err != nil {
				return Turn{History: history}, err
			}
			if outcome.Final() {
				state = stateDone
			} else {
				state = stateDispatching
			}

		case stateDispatching:
			history = append(history, outcome.Assistant)
			results := o.dispatch(ctx, outcome.ToolCalls)
			for _, call := range outcome.ToolCalls {
				history = append(history, openai.ToolMessage(results[call.ID], call.ID))
			}

			turns++
			if turns >= maxTurns {
				state = stateExhausted
			} else {
				state = stateAwaiting
			}

		case stateDone:
			return Turn{Text: outcome.Text, History: history}, nil

		case stateExhausted:
			return Turn{Exhausted: true, History: history}, nil
		}
	}
}

// dispatch executes all calls of one turn concurrently and returns the
// results keyed by tool call ID. Completion order is not guaranteed, so
// results are matched by ID, never by position. Failures become result
// text; a failing tool never aborts the turn.
func (o *Orchestrator) dispatch(ctx context.Context, calls []chat.ToolCall) map[string]string {
	type result struct {
		id      string
		content string
	}

	results := make(chan result, len(calls))

	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call chat.ToolCall) {
			defer wg.Done()
			results <- result{id: call.ID, content: o.execute(ctx, call)}
		}(call)
	}
	wg.Wait()
	close(results)

	byID := make(map[string]string, len(calls))
	for r := range results {
		byID[r.id] = r.content
	}
	return byID
}

func (o *Orchestrator) execute(ctx context.Context, call chat.ToolCall) string {
	logger := o.logger()
	logger.Debug("tool call", "tool", call.Name, "id", call.ID)

	content, err := o.Registry.Execute(ctx, call.Name, call.Arguments)
	if errors.Is(err, tooling.ErrToolNotFound) {
		logger.Warn("no executor for tool call", "tool", call.Name, "id", call.ID)
		return fmt.Sprintf("No executor found for tool %s", call.Name)
	}
	if err != nil {
		logger.Warn("tool call failed", "tool", call.Name, "id", call.ID, "error", err)
		return fmt.Sprintf("Error executing tool %s: %v", call.Name, causeOf(err))
	}
	return content
}

// causeOf strips the registry's tool-name prefix so the folded text
// names the tool exactly once.
func causeOf(err error) error {
	var argErr *tooling.ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Err
	}
	var execErr *tooling.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Err
	}
	return err
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
