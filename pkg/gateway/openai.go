package gateway

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/sealor/chat-relay/pkg/chat"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint. Tool
// choice is left to the model ("auto").
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (g *OpenAI) Infer(ctx context.Context, history []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolUnionParam) (Outcome, error) {
	params := openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: history,
		Tools:    tools,
	}
	if len(tools) > 0 {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Outcome{}, &ProviderError{Err: err}
	}

	return Classify(completion)
}

// Classify turns a raw completion into an Outcome. Tool dispatch is
// requested only when the model stopped for tool calls and the call
// list is non-empty; every other completion is terminal, empty content
// included.
func Classify(completion *openai.ChatCompletion) (Outcome, error) {
	if len(completion.Choices) == 0 {
		return Outcome{}, &ProviderError{Err: errors.New("completion has no choices")}
	}

	choice := completion.Choices[0]
	message := choice.Message

	if choice.FinishReason == "tool_calls" && len(message.ToolCalls) > 0 {
		return Outcome{
			ToolCalls: chat.FromToolCallUnions(message.ToolCalls),
			Assistant: message.ToParam(),
		}, nil
	}

	return Outcome{Text: message.Content}, nil
}
