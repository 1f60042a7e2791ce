package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-triage/internal/ports"
)

// OpenAIDefaultModel is used when the configuration names no model.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM for OpenAI's chat completion API.
// It is the only built-in provider with tool-invocation support, so the
// router is normally configured against it.
type openAIProvider struct {
	BaseProvider
	client          *openai.Client
	errorClassifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: ValidateTimeout(config.Timeout)}
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          openai.NewClientWithConfig(clientConfig),
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends a chat completion request, translating tool definitions
// and tool-call turns into OpenAI's function-calling format.
func (p *openAIProvider) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	options := ParseRequestOptions(req.Options, p.GetModel())

	ccr := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: p.buildMessages(req, options),
	}
	if options.Temperature != nil {
		ccr.Temperature = float32(ClampFloat64(*options.Temperature, 0.0, 2.0))
	}
	if options.MaxTokens > 0 {
		ccr.MaxTokens = options.MaxTokens
	}
	for _, tool := range req.Tools {
		ccr.Tools = append(ccr.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return ports.ChatResponse{}, p.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return ports.ChatResponse{}, ErrNoResponseChoice
	}

	choice := resp.Choices[0].Message
	out := ports.ChatResponse{
		Text:      choice.Content,
		TokensIn:  usageOrEstimate(resp.Usage.PromptTokens, flattenRequest(req)),
		TokensOut: usageOrEstimate(resp.Usage.CompletionTokens, choice.Content),
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

// buildMessages converts the provider-agnostic conversation into OpenAI
// message structs, carrying tool-call turns through faithfully.
func (p *openAIProvider) buildMessages(req ports.ChatRequest, options RequestOptions) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	system := req.System
	if system == "" {
		system = options.System
	}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{Content: m.Content}
		switch m.Role {
		case ports.RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		case ports.RoleTool:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
			msg.Name = m.Name
		default:
			msg.Role = openai.ChatMessageRoleUser
		}
		messages = append(messages, msg)
	}

	return messages
}

func (p *openAIProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}

// usageOrEstimate prefers the provider-reported token count and falls back
// to a length-based estimate when usage is absent.
func usageOrEstimate(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	return EstimateTokens(text)
}

// flattenRequest concatenates the conversation text for token estimation.
func flattenRequest(req ports.ChatRequest) string {
	text := req.System
	for _, m := range req.Messages {
		text += m.Content
	}
	return text
}
