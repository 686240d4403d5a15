// Package gateway wraps the inference provider behind a stateless
// request/response interface.
package gateway

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/sealor/chat-relay/pkg/chat"
)

// Outcome is the classified result of one provider call. Either the
// model produced a terminal reply (Final) or it requested tool calls,
// in which case Assistant carries the raw assistant message that must
// be appended to history verbatim before any tool result.
type Outcome struct {
	Text      string
	ToolCalls []chat.ToolCall
	Assistant openai.ChatCompletionMessageParamUnion
}

// Final reports whether the turn is terminal and Text is the reply.
func (o Outcome) Final() bool { return len(o.ToolCalls) == 0 }

// ProviderError wraps any failure of the external provider, transport
// or auth included. It is never retried within a turn.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("inference provider: %v", e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

// Gateway produces one Outcome per call. Implementations hold no
// conversation state; the full history is supplied on every call.
type Gateway interface {
	Infer(ctx context.Context, history []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolUnionParam) (Outcome, error)
}
