package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
)

// qualityScoreName is the name the score is recorded under on the trace.
const qualityScoreName = "rag_quality_score"

// scorerMaxTokens bounds the judge response; the JSON verdict is short.
const scorerMaxTokens = 256

// defaultJudgeTemplate asks the judge model for a structured verdict on how
// well the response answers the query.
const defaultJudgeTemplate = `You are a strict quality judge for a retrieval-augmented answering system.

Rate how well the response answers the query on a scale from 0 to 10, where
0 means completely unhelpful or wrong and 10 means complete, accurate, and
well grounded.

Query:
{{.Query}}

Response:
{{.Response}}

Reply with a JSON object only, no prose:
{"score": <number between 0 and 10>, "reasoning": "<one sentence>"}`

// judgeData fills the judge prompt template.
type judgeData struct {
	Query    string
	Response string
}

// judgeVerdict is the JSON shape the judge model must return.
type judgeVerdict struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// QualityScorer asks a judge model to rate an answer and attaches the score
// to the execution trace. Scoring is best effort: ScoreTrace absorbs every
// failure so evaluation can never disturb the answer path.
type QualityScorer struct {
	llm    ports.LLMClient
	sink   ports.TraceSink
	tmpl   *template.Template
	logger *zap.Logger
}

// NewQualityScorer creates a scorer over the given judge client and trace
// sink. A nil sink disables trace attachment; a nil logger disables logging.
func NewQualityScorer(llm ports.LLMClient, sink ports.TraceSink, logger *zap.Logger) (*QualityScorer, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("judge").Parse(defaultJudgeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse judge template: %w", err)
	}

	return &QualityScorer{llm: llm, sink: sink, tmpl: tmpl, logger: logger}, nil
}

// Evaluate rates the response against the query. All failures wrap
// domain.ErrEvaluation.
func (s *QualityScorer) Evaluate(ctx context.Context, query, response string) (domain.QualityScore, error) {
	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, judgeData{Query: query, Response: response}); err != nil {
		return domain.QualityScore{}, fmt.Errorf("%w: render judge prompt: %v", domain.ErrEvaluation, err)
	}

	raw, err := s.llm.Complete(ctx, sb.String(), map[string]any{
		"temperature": 0.0,
		"max_tokens":  scorerMaxTokens,
	})
	if err != nil {
		return domain.QualityScore{}, fmt.Errorf("%w: judge request: %v", domain.ErrEvaluation, err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return domain.QualityScore{}, fmt.Errorf("%w: %v", domain.ErrEvaluation, err)
	}

	return domain.NewQualityScore(verdict.Score, verdict.Reasoning), nil
}

// ScoreTrace evaluates the response and attaches the score to the given
// trace. It never fails: evaluation or sink errors are logged and dropped.
func (s *QualityScorer) ScoreTrace(ctx context.Context, traceID, query, response string) {
	score, err := s.Evaluate(ctx, query, response)
	if err != nil {
		s.logger.Warn("quality scoring failed",
			zap.String("trace_id", traceID),
			zap.Error(err))
		return
	}

	if s.sink != nil {
		s.sink.Score(ctx, traceID, qualityScoreName, float64(score.Value), score.Justification)
	}
	s.logger.Info("quality score attached",
		zap.String("trace_id", traceID),
		zap.Int("score", score.Value))
}

// parseVerdict extracts and validates the judge's JSON verdict.
func parseVerdict(raw string) (judgeVerdict, error) {
	var verdict judgeVerdict
	payload := extractJSON(raw)
	if payload == "" {
		return verdict, fmt.Errorf("no JSON object in judge response")
	}
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		return verdict, fmt.Errorf("parse judge response: %v", err)
	}
	if verdict.Score < 0 || verdict.Score > 10 {
		return verdict, fmt.Errorf("judge score %.2f outside [0, 10]", verdict.Score)
	}
	return verdict, nil
}

// extractJSON pulls the first JSON object out of a model response, handling
// responses wrapped in markdown code fences.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.Contains(text, "```") {
		if start := strings.Index(text, "```json"); start != -1 {
			text = text[start+len("```json"):]
		} else if start := strings.Index(text, "```"); start != -1 {
			text = text[start+len("```"):]
		}
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
