package chat

import (
	"fmt"

	"github.com/openai/openai-go/v3"
)

// FromParams flattens OpenAI message param unions into Messages, e.g.
// for emitting a history over the wire.
func FromParams(params []openai.ChatCompletionMessageParamUnion) []Message {
	var messages []Message
	for _, param := range params {
		messages = append(messages, *FromParam(&param))
	}
	return messages
}

func FromParam(param *openai.ChatCompletionMessageParamUnion) *Message {
	if m := param.OfAssistant; m != nil {
		return &Message{Role: RoleAssistant, Content: m.Content.OfString.String(), ToolCalls: fromToolCallParams(m.ToolCalls)}
	}
	if m := param.OfDeveloper; m != nil {
		return &Message{Role: RoleDeveloper, Content: m.Content.OfString.String()}
	}
	if m := param.OfSystem; m != nil {
		return &Message{Role: RoleSystem, Content: m.Content.OfString.String()}
	}
	if m := param.OfTool; m != nil {
		return &Message{Role: RoleTool, Content: m.Content.OfString.String(), ToolCallID: m.ToolCallID}
	}
	if m := param.OfUser; m != nil {
		return &Message{Role: RoleUser, Content: m.Content.OfString.String()}
	}
	return &Message{Role: derefRole(param)}
}

func derefRole(param *openai.ChatCompletionMessageParamUnion) string {
	if role := param.GetRole(); role != nil {
		return *role
	}
	return ""
}

// ToParams maps Messages back into OpenAI message param unions.
func ToParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	var params []openai.ChatCompletionMessageParamUnion
	for _, message := range messages {
		params = append(params, *ToParam(&message))
	}
	return params
}

func ToParam(message *Message) *openai.ChatCompletionMessageParamUnion {
	var param openai.ChatCompletionMessageParamUnion

	switch message.Role {
	case RoleAssistant:
		param = openai.AssistantMessage(message.Content)
		param.OfAssistant.ToolCalls = ToolCallParams(message.ToolCalls)
	case RoleDeveloper:
		param = openai.DeveloperMessage(message.Content)
	case RoleSystem:
		param = openai.SystemMessage(message.Content)
	case RoleTool:
		param = openai.ToolMessage(message.Content, message.ToolCallID)
	default:
		param = openai.UserMessage(message.Content)
	}

	return &param
}

func fromToolCallParams(calls []openai.ChatCompletionMessageToolCallUnionParam) []ToolCall {
	var toolCalls []ToolCall
	for _, call := range calls {
		toolCalls = append(toolCalls, *fromToolCallParam(&call))
	}
	return toolCalls
}

func fromToolCallParam(call *openai.ChatCompletionMessageToolCallUnionParam) *ToolCall {
	if call.OfFunction != nil {
		f := call.OfFunction
		return &ToolCall{ID: f.ID, Name: f.Function.Name, Arguments: f.Function.Arguments}
	}

	return &ToolCall{ID: fmt.Sprint("ERROR: mapping failed for", call)}
}

// FromToolCallUnions maps tool calls of a completion response into
// ToolCalls.
func FromToolCallUnions(calls []openai.ChatCompletionMessageToolCallUnion) []ToolCall {
	var toolCalls []ToolCall
	for _, call := range calls {
		toolCalls = append(toolCalls, ToolCall{ID: call.ID, Name: call.Function.Name, Arguments: call.Function.Arguments})
	}
	return toolCalls
}

// ToolCallParams maps ToolCalls into OpenAI tool call params, e.g. for
// reconstructing an assistant message.
func ToolCallParams(calls []ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	for _, call := range calls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID:       call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{Name: call.Name, Arguments: call.Arguments},
			},
		})
	}
	return toolCalls
}
