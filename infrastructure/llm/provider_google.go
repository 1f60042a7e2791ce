package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-triage/internal/ports"
)

// GoogleDefaultModel is used when the configuration names no model.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM for Google's Gemini API. Like the
// Anthropic provider it serves plain completion only.
type googleProvider struct {
	BaseProvider
	client          *genai.Client
	errorClassifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends a generate-content request to the Gemini API.
// Gemini has no separate conversation roles for this use, so the
// conversation is flattened into a single prompt with the system
// instruction prepended.
func (p *googleProvider) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	if len(req.Tools) > 0 {
		return ports.ChatResponse{}, ErrToolsUnsupported
	}

	options := ParseRequestOptions(req.Options, p.GetModel())

	prompt := p.flattenConversation(req, options)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if options.Temperature != nil {
		config.Temperature = genai.Ptr(float32(ClampFloat64(*options.Temperature, 0.0, 2.0)))
	}
	if options.MaxTokens > 0 {
		if options.MaxTokens > math.MaxInt32 {
			config.MaxOutputTokens = math.MaxInt32
		} else {
			config.MaxOutputTokens = int32(options.MaxTokens)
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.Model, contents, config)
	if err != nil {
		return ports.ChatResponse{}, p.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return ports.ChatResponse{}, ErrEmptyResponse
	}

	out := ports.ChatResponse{Text: text}
	if usage := resp.UsageMetadata; usage != nil {
		out.TokensIn = usageOrEstimate(int(usage.PromptTokenCount), prompt)
		out.TokensOut = usageOrEstimate(int(usage.CandidatesTokenCount), text)
	} else {
		out.TokensIn = EstimateTokens(prompt)
		out.TokensOut = EstimateTokens(text)
	}

	return out, nil
}

func (p *googleProvider) flattenConversation(req ports.ChatRequest, options RequestOptions) string {
	var b strings.Builder

	system := req.System
	if system == "" {
		system = options.System
	}
	if system != "" {
		fmt.Fprintf(&b, "System: %s\n\n", system)
	}

	for _, m := range req.Messages {
		switch m.Role {
		case ports.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n\n", m.Content)
		default:
			fmt.Fprintf(&b, "User: %s\n\n", m.Content)
		}
	}

	return strings.TrimSpace(b.String())
}

func (p *googleProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}

		if containsContentPolicyError(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}

		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

func containsContentPolicyError(apiErr *googleapi.Error) bool {
	if apiErr.Message != "" {
		lower := strings.ToLower(apiErr.Message)
		if strings.Contains(lower, "safety") ||
			strings.Contains(lower, "policy") ||
			strings.Contains(lower, "blocked") {
			return true
		}
	}

	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}

	return false
}
