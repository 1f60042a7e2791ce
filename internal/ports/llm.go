// Package ports defines the interfaces between the triage core and its
// external collaborators: the answer-generation service, the retrieval
// indexes, the trace sink, and the metrics backend. These interfaces keep
// the routing and answering logic testable against scripted fakes.
package ports

import (
	"context"
	"encoding/json"
)

// LLMClient is the plain completion surface of the answer-generation service.
// Implementations handle provider-specific authentication, request formatting,
// and response parsing.
//
// The options map carries per-call knobs without changing the interface.
// Recognized keys include:
//   - "temperature": float64
//   - "max_tokens": int
//   - "model": string
//   - "system": string
type LLMClient interface {
	// Complete sends a single-prompt completion request and returns the
	// generated text.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier used by this client,
	// for logging and result attribution.
	GetModel() string
}

// ChatClient extends LLMClient with multi-turn, tool-invocation-capable
// generation. The router depends on this surface; the answerer and scorer
// only need plain completion.
type ChatClient interface {
	LLMClient

	// Chat submits a conversation, optionally advertising invocable tools.
	// The model either produces final text or requests one or more tool
	// calls; the caller executes requested tools and submits a follow-up
	// request containing the results.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles understood by all providers.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls echoes the tool invocations an assistant turn requested.
	// Set only on assistant turns.
	ToolCalls []ToolCall
	// ToolCallID links a tool turn back to the call it answers.
	// Set only on tool turns.
	ToolCallID string
	// Name is the tool name on tool turns.
	Name string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned call identifier.
	ID string
	// Name is the capability name the model selected.
	Name string
	// Arguments is the raw JSON argument payload.
	Arguments string
}

// ToolDefinition advertises one invocable capability to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the tool arguments.
	Parameters json.RawMessage
}

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	// System is the system-level instruction for the conversation.
	System string
	// Messages holds the conversation turns in order.
	Messages []Message
	// Tools lists the capabilities the model may invoke. Empty for plain chat.
	Tools []ToolDefinition
	// Options carries the same per-call knobs as LLMClient.Complete.
	Options map[string]any
}

// ChatResponse is the provider-agnostic result of a chat completion.
type ChatResponse struct {
	// Text is the assistant's final message text. Empty when the model
	// requested tool calls instead of answering.
	Text string
	// ToolCalls lists the tool invocations the model requested, if any.
	ToolCalls []ToolCall
	// TokensIn and TokensOut report token usage when the provider
	// supplies it, estimated otherwise.
	TokensIn  int
	TokensOut int
}
