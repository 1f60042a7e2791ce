package domain

import "math"

// Passage is a single chunk of grounding text retrieved from a domain index.
// Passages are produced fresh for every query and ordered by similarity rank,
// where rank 1 is the most relevant.
type Passage struct {
	// Ordinal is the 1-based similarity rank of the passage.
	Ordinal int
	// Text is the passage content used to ground the generated answer.
	Text string
	// Source carries index-native metadata about the passage origin,
	// such as the document name or chunk offset.
	Source map[string]string
	// Similarity is the cosine similarity between the passage and the
	// query embedding, in [0, 1] for normalized vectors.
	Similarity float64
}

// AnswerResult is the structured outcome of one retrieval-augmented answer
// attempt. Exactly one of the two shapes occurs: a grounded answer with
// passages, or a degraded answer with no passages and a captured error.
type AnswerResult struct {
	// ResponseText is the generated answer, or the agent's fixed degraded
	// answer when Degraded is true.
	ResponseText string
	// Passages holds the retrieved grounding passages in rank order.
	// Empty whenever Degraded is true.
	Passages []Passage
	// Domain identifies the agent that produced the result.
	Domain AgentType
	// Model is the identity of the generation model, empty on degraded results.
	Model string
	// Degraded is true iff retrieval or generation failed and the fixed
	// fallback answer was returned instead.
	Degraded bool
	// ErrorDetail carries the captured failure message on degraded results.
	// It is diagnostic only and never shown to the end user.
	ErrorDetail string
}

// QualityScore is the automated judgment attached to one completed query.
// It is created once per routed query and never mutated afterward.
type QualityScore struct {
	// Value is the rounded score on the 0-10 scale.
	Value int
	// Justification is the judge's textual reasoning for the score.
	Justification string
}

// NewQualityScore rounds a raw judge score to the nearest integer
// (0.5 rounds up) and clamps it to the 0-10 scale.
func NewQualityScore(raw float64, justification string) QualityScore {
	v := int(math.Floor(raw + 0.5))
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return QualityScore{Value: v, Justification: justification}
}
