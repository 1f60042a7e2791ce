package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
	"github.com/ahrav/go-triage/internal/testutils"
)

const testPolicy = "Route each employee query to exactly one capability."

// routerFixture wires a full pipeline over mocks: three agents with
// per-domain indexes, a scripted routing model, and an in-memory sink.
type routerFixture struct {
	chat    *testutils.MockLLMClient
	answers *testutils.MockLLMClient
	opener  *testutils.MockIndexOpener
	sink    *testutils.MockTraceSink
	router  *Router
}

func newRouterFixture(t *testing.T, opts ...RouterOption) *routerFixture {
	t.Helper()

	opener := testutils.NewMockIndexOpener().
		WithIndex("hr.db", testutils.NewMockIndex(
			domain.Passage{Ordinal: 1, Text: "Vacation policy grants 20 days.", Similarity: 0.9})).
		WithIndex("tech.db", testutils.NewMockIndex(
			domain.Passage{Ordinal: 1, Text: "Reboot, then contact IT via the helpdesk.", Similarity: 0.88})).
		WithIndex("finance.db", testutils.NewMockIndex(
			domain.Passage{Ordinal: 1, Text: "Expenses are reimbursed within 30 days.", Similarity: 0.85}))

	answers := testutils.NewMockLLMClient().WithDefaultResponse("grounded answer")
	reg := newTestRegistry(t, opener, answers)

	chat := testutils.NewMockLLMClient()
	sink := testutils.NewMockTraceSink()
	opts = append([]RouterOption{WithTraceSink(sink)}, opts...)
	router, err := NewRouter(chat, reg, testPolicy, nil, opts...)
	require.NoError(t, err)

	return &routerFixture{chat: chat, answers: answers, opener: opener, sink: sink, router: router}
}

func toolCallTurn(name, query string) ports.ChatResponse {
	return ports.ChatResponse{
		ToolCalls: []ports.ToolCall{{
			ID:        "call-1",
			Name:      name,
			Arguments: `{"query": ` + jsonString(query) + `}`,
		}},
	}
}

func jsonString(s string) string { return `"` + s + `"` }

func TestRouter_RoutesTechQueryToTechAgent(t *testing.T) {
	fx := newRouterFixture(t)
	fx.answers.WithDefaultResponse("Reboot your laptop, then open a helpdesk ticket.")
	fx.chat.ScriptChat(
		toolCallTurn("TechAgent", "My laptop is not working, what should I do?"),
		ports.ChatResponse{Text: "Reboot your laptop, then open a helpdesk ticket."},
	)

	fx.router.SetQuery("My laptop is not working, what should I do?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Reboot your laptop, then open a helpdesk ticket.", answer)

	// The tech index, and only the tech index, served the query.
	assert.Equal(t, []string{"tech.db"}, fx.opener.Opens)

	// The second model turn saw the capability result.
	require.Len(t, fx.chat.ChatRequests, 2)
	second := fx.chat.ChatRequests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, ports.RoleTool, second.Messages[2].Role)
	assert.Equal(t, "TechAgent", second.Messages[2].Name)
}

func TestRouter_RoutesExpenseQueryToFinanceAgent(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.ScriptChat(
		toolCallTurn("FinanceAgent", "How do I submit an expense report?"),
		ports.ChatResponse{Text: "Submit it through the expense portal; reimbursement lands within 30 days."},
	)

	fx.router.SetQuery("How do I submit an expense report?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, answer, "expense portal")
	assert.Equal(t, []string{"finance.db"}, fx.opener.Opens)
}

func TestRouter_ReusableAcrossQueries(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.ScriptChat(
		toolCallTurn("TechAgent", "My laptop is not working, what should I do?"),
		ports.ChatResponse{Text: "Reboot your laptop."},
		toolCallTurn("TechAgent", "My laptop is not working, what should I do?"),
		ports.ChatResponse{Text: "Reboot your laptop."},
	)

	for run := 0; run < 2; run++ {
		fx.router.SetQuery("My laptop is not working, what should I do?")
		answer, err := fx.router.Run(context.Background())
		require.NoError(t, err, "run %d", run)
		assert.Equal(t, "Reboot your laptop.", answer)
	}

	// The same query lands on the same domain each time, and every run
	// starts a fresh conversation: the opening turn holds only the query.
	assert.Equal(t, []string{"tech.db", "tech.db"}, fx.opener.Opens)
	require.Len(t, fx.chat.ChatRequests, 4)
	assert.Len(t, fx.chat.ChatRequests[0].Messages, 1)
	assert.Len(t, fx.chat.ChatRequests[2].Messages, 1)
}

func TestRouter_BrokenIndexStillAnswersDegraded(t *testing.T) {
	fx := newRouterFixture(t)

	// Break the tech index after registration: subsequent opens fail.
	fx.opener.WithOpenError("tech.db", errors.New("index file corrupted"))
	fx.chat.ScriptChat(
		toolCallTurn("TechAgent", "VPN will not connect"),
		ports.ChatResponse{Text: "creatively answer query using less than 130 words."},
	)

	fx.router.SetQuery("VPN will not connect")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err, "a broken index must never surface as a routing error")
	assert.Equal(t, "creatively answer query using less than 130 words.", answer)

	// The capability result handed to the model was the degraded answer.
	second := fx.chat.ChatRequests[1]
	assert.Equal(t, "creatively answer query using less than 130 words.", second.Messages[2].Content)
}

func TestRouter_FailingScorerDoesNotDisturbAnswer(t *testing.T) {
	judge := testutils.NewMockLLMClient().WithCompleteError(errors.New("judge offline"))
	sink := testutils.NewMockTraceSink()
	scorer, err := NewQualityScorer(judge, sink, nil)
	require.NoError(t, err)

	fx := newRouterFixture(t, WithScorer(scorer))
	fx.chat.ScriptChat(
		toolCallTurn("HRAgent", "What is the parental leave policy?"),
		ports.ChatResponse{Text: "Parental leave is 16 weeks, fully paid."},
	)

	fx.router.SetQuery("What is the parental leave policy?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Parental leave is 16 weeks, fully paid.", answer)
	assert.Empty(t, sink.Scores, "no score should be attached when the judge fails")
}

func TestRouter_ScoreAttachedToTrace(t *testing.T) {
	fx := newRouterFixture(t)

	judge := testutils.NewMockLLMClient().
		WithDefaultResponse(`{"score": 8.5, "reasoning": "grounded and complete"}`)
	scorer, err := NewQualityScorer(judge, fx.sink, nil)
	require.NoError(t, err)
	WithScorer(scorer)(fx.router)

	fx.chat.ScriptChat(
		toolCallTurn("HRAgent", "vacation days?"),
		ports.ChatResponse{Text: "You get 20 vacation days."},
	)

	fx.router.SetQuery("vacation days?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You get 20 vacation days.", answer)

	require.Len(t, fx.sink.Traces, 1)
	require.Len(t, fx.sink.Scores, 1)
	assert.Equal(t, fx.sink.Traces[0].ID, fx.sink.Scores[0].TraceID, "score must attach to the routed trace")
	assert.Equal(t, "rag_quality_score", fx.sink.Scores[0].Name)
	assert.Equal(t, 9.0, fx.sink.Scores[0].Value, "8.5 rounds half up")
}

func TestRouter_NoCapabilitySelectedIsAnomalyNotError(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.ScriptChat(ports.ChatResponse{Text: "I could not pick a domain for that."})

	fx.router.SetQuery("What's the meaning of life?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err, "zero selections is an anomaly, never a failure")
	assert.Equal(t, "I could not pick a domain for that.", answer)
	assert.Empty(t, fx.opener.Opens)
}

func TestRouter_MultipleCapabilitiesStillReturnsText(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.ScriptChat(
		ports.ChatResponse{ToolCalls: []ports.ToolCall{
			{ID: "c1", Name: "HRAgent", Arguments: `{"query": "benefits"}`},
			{ID: "c2", Name: "FinanceAgent", Arguments: `{"query": "benefits cost"}`},
		}},
		ports.ChatResponse{Text: "combined answer"},
	)

	fx.router.SetQuery("Tell me about benefits and their cost")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "combined answer", answer)
	assert.ElementsMatch(t, []string{"hr.db", "finance.db"}, fx.opener.Opens)
}

func TestRouter_GenerationFailureIsAnError(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.WithChatError(errors.New("connection refused"))

	fx.router.SetQuery("anything")
	_, err := fx.router.Run(context.Background())
	require.Error(t, err, "an unreachable routing model is the one fatal failure")
}

func TestRouter_UnknownCapabilityFallsThrough(t *testing.T) {
	fx := newRouterFixture(t)
	fx.chat.ScriptChat(
		toolCallTurn("LegalAgent", "can I sign this?"),
		ports.ChatResponse{Text: "final text"},
	)

	fx.router.SetQuery("can I sign this?")
	answer, err := fx.router.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "final text", answer)
	// The model was told the capability does not exist.
	second := fx.chat.ChatRequests[1]
	assert.Contains(t, second.Messages[2].Content, "LegalAgent")
}

func TestRouter_ToolLoopCapIsAnError(t *testing.T) {
	fx := newRouterFixture(t)
	// Every turn keeps requesting a capability; the router must give up.
	fx.chat.ScriptChat(
		toolCallTurn("HRAgent", "q"),
		toolCallTurn("HRAgent", "q"),
		toolCallTurn("HRAgent", "q"),
		toolCallTurn("HRAgent", "q"),
		toolCallTurn("HRAgent", "q"),
	)

	fx.router.SetQuery("q")
	_, err := fx.router.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, fx.chat.ChatRequests, 4, "the loop is bounded")
}

func TestRouter_EmptyQueryRejected(t *testing.T) {
	fx := newRouterFixture(t)
	fx.router.SetQuery("   ")
	_, err := fx.router.Run(context.Background())
	require.Error(t, err)
}

func TestRouter_SetQueryNormalizes(t *testing.T) {
	fx := newRouterFixture(t)
	fx.router.SetQuery("  café wifi broken  ")
	assert.Equal(t, "café wifi broken", fx.router.Query(), "queries are NFC-normalized and trimmed")
}
