package agent

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
	"github.com/ahrav/go-triage/internal/prompt"
)

// Shared validator instance for configuration structs in this package.
var validate = validator.New()

// Defaults for the retrieval-augmented answer path.
const (
	// DefaultTopK is the number of grounding passages retrieved per query.
	DefaultTopK = 3
	// DefaultAnswerMaxTokens caps the generated answer length.
	DefaultAnswerMaxTokens = 130
	// passagePreviewLen bounds the passage text logged per retrieval.
	passagePreviewLen = 80
)

// AnswererConfig holds the tunable parameters of the answer path.
type AnswererConfig struct {
	// TopK is the number of passages retrieved per query.
	TopK int `yaml:"top_k" validate:"required,min=1,max=10"`
	// MaxTokens caps the generated answer length.
	MaxTokens int `yaml:"max_tokens" validate:"required,min=10,max=4000"`
	// Temperature is the generation temperature. Zero keeps grounded
	// answers deterministic.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
}

// DefaultAnswererConfig returns the production defaults: three passages,
// deterministic generation, 130-token answers.
func DefaultAnswererConfig() AnswererConfig {
	return AnswererConfig{
		TopK:        DefaultTopK,
		MaxTokens:   DefaultAnswerMaxTokens,
		Temperature: 0,
	}
}

// Answerer turns a query into a grounded answer for one domain agent:
// retrieve top-k passages, compose the grounding prompt, generate, and fall
// back to the agent's degraded answer on any failure. Answer never returns
// an error; failure is encoded in the result.
type Answerer struct {
	llm    ports.LLMClient
	tmpl   *template.Template
	config AnswererConfig
	logger *zap.Logger
}

// NewAnswerer creates an answerer over the given generation client and
// grounding template. A nil template selects the built-in default; a nil
// logger disables logging.
func NewAnswerer(llm ports.LLMClient, tmpl *template.Template, config AnswererConfig, logger *zap.Logger) (*Answerer, error) {
	if llm == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("answerer configuration invalid: %w", err)
	}
	if tmpl == nil {
		var err error
		tmpl, err = prompt.ParseGrounding(prompt.DefaultGroundingTemplate)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Answerer{llm: llm, tmpl: tmpl, config: config, logger: logger}, nil
}

// Answer produces an AnswerResult for the query against the agent's index.
// Every failure path converts to the degraded result; nothing propagates.
func (an *Answerer) Answer(ctx context.Context, ag *DomainAgent, query string) domain.AnswerResult {
	ix, err := ag.Index(ctx)
	if err != nil {
		return an.degraded(ag, err)
	}
	defer ix.Close()

	passages, err := ix.Search(ctx, query, an.config.TopK)
	if err != nil {
		return an.degraded(ag, err)
	}
	an.logPassages(ag, passages)

	groundingPrompt, err := an.composePrompt(ag, query, passages)
	if err != nil {
		return an.degraded(ag, err)
	}

	text, err := an.llm.Complete(ctx, groundingPrompt, map[string]any{
		"temperature": an.config.Temperature,
		"max_tokens":  an.config.MaxTokens,
	})
	if err != nil {
		return an.degraded(ag, err)
	}

	return domain.AnswerResult{
		ResponseText: text,
		Passages:     passages,
		Domain:       ag.Type(),
		Model:        an.llm.GetModel(),
	}
}

// composePrompt renders the grounding template with the passages
// concatenated in rank order, separated by blank lines.
func (an *Answerer) composePrompt(ag *DomainAgent, query string, passages []domain.Passage) (string, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var buf bytes.Buffer
	err := an.tmpl.Execute(&buf, prompt.GroundingData{
		Context:   strings.Join(texts, "\n\n"),
		Question:  query,
		AgentType: ag.Type().DisplayName(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to compose grounding prompt: %w", err)
	}
	return buf.String(), nil
}

// logPassages emits one line per retrieved passage for observability.
// Logging failures cannot block the answer path; zap never returns errors
// from its log methods.
func (an *Answerer) logPassages(ag *DomainAgent, passages []domain.Passage) {
	for _, p := range passages {
		preview := p.Text
		if len(preview) > passagePreviewLen {
			preview = preview[:passagePreviewLen] + "..."
		}
		an.logger.Info("retrieved passage",
			zap.String("domain", ag.Type().String()),
			zap.Int("ordinal", p.Ordinal),
			zap.Float64("similarity", p.Similarity),
			zap.String("preview", preview))
	}
}

// degraded builds the fixed fallback result with the captured failure.
func (an *Answerer) degraded(ag *DomainAgent, cause error) domain.AnswerResult {
	an.logger.Warn("falling back to degraded answer",
		zap.String("domain", ag.Type().String()),
		zap.Error(cause))

	return domain.AnswerResult{
		ResponseText: ag.DegradedAnswer(),
		Domain:       ag.Type(),
		Degraded:     true,
		ErrorDetail:  cause.Error(),
	}
}
