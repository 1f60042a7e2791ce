// Package testutils provides in-memory fakes for the ports used across the
// triage pipeline.
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-triage/internal/ports"
)

// MockLLMClient is a configurable fake for both ports.LLMClient and
// ports.ChatClient. Plain completions are answered by substring pattern
// matching; chat turns are answered from a scripted FIFO of responses.
type MockLLMClient struct {
	mu sync.Mutex

	model string

	// responses maps a prompt substring to the completion returned when the
	// prompt contains it. First registered match wins.
	patterns  []string
	responses map[string]string

	// defaultResponse is returned when no pattern matches.
	defaultResponse string

	// chatScript is consumed one response per Chat call.
	chatScript []ports.ChatResponse

	// completeErr and chatErr, when set, fail the corresponding method.
	completeErr error
	chatErr     error

	// Recorded requests, in call order.
	Prompts      []string
	ChatRequests []ports.ChatRequest
}

var (
	_ ports.LLMClient  = (*MockLLMClient)(nil)
	_ ports.ChatClient = (*MockLLMClient)(nil)
)

// NewMockLLMClient creates a mock with a default echo response.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		model:           "mock-model",
		responses:       make(map[string]string),
		defaultResponse: "mock response",
	}
}

// WithModel sets the model name reported by GetModel.
func (m *MockLLMClient) WithModel(model string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	return m
}

// WithResponse returns the given completion for prompts containing pattern.
func (m *MockLLMClient) WithResponse(pattern, response string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.responses[pattern]; !exists {
		m.patterns = append(m.patterns, pattern)
	}
	m.responses[pattern] = response
	return m
}

// WithDefaultResponse sets the completion returned when no pattern matches.
func (m *MockLLMClient) WithDefaultResponse(response string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = response
	return m
}

// WithCompleteError makes every Complete call fail with err.
func (m *MockLLMClient) WithCompleteError(err error) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
	return m
}

// WithChatError makes every Chat call fail with err.
func (m *MockLLMClient) WithChatError(err error) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatErr = err
	return m
}

// ScriptChat appends responses to the FIFO consumed by Chat.
func (m *MockLLMClient) ScriptChat(responses ...ports.ChatResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatScript = append(m.chatScript, responses...)
	return m
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)

	if m.completeErr != nil {
		return "", m.completeErr
	}
	for _, pattern := range m.patterns {
		if strings.Contains(prompt, pattern) {
			return m.responses[pattern], nil
		}
	}
	return m.defaultResponse, nil
}

// Chat implements ports.ChatClient, replaying the scripted responses in
// order. Running past the script is a test bug and fails loudly.
func (m *MockLLMClient) Chat(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ports.ChatResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatRequests = append(m.ChatRequests, req)

	if m.chatErr != nil {
		return ports.ChatResponse{}, m.chatErr
	}
	if len(m.chatScript) == 0 {
		return ports.ChatResponse{}, fmt.Errorf("mock chat script exhausted after %d calls", len(m.ChatRequests))
	}
	resp := m.chatScript[0]
	m.chatScript = m.chatScript[1:]
	return resp, nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}
