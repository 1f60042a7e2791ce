package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-triage/internal/ports"
)

// maxToolTurns caps the routing conversation. One selection plus the final
// synthesis normally takes two turns; the slack absorbs a model that asks
// for a second capability before answering.
const maxToolTurns = 4

// routerTraceName is the name the routing run is recorded under.
const routerTraceName = "router.run"

// Router sends the current query to the routing model along with every
// registered capability, executes the capability the model selects, and
// returns the model's final text. The router enforces nothing about which
// capability fits the query; that judgement belongs entirely to the model.
type Router struct {
	llm      ports.ChatClient
	registry *Registry
	policy   string
	scorer   *QualityScorer
	sink     ports.TraceSink
	logger   *zap.Logger
	metrics  ports.MetricsCollector

	mu           sync.Mutex
	currentQuery string
}

// RouterOption configures optional router collaborators.
type RouterOption func(*Router)

// WithScorer attaches a quality scorer to run after each routing pass.
func WithScorer(scorer *QualityScorer) RouterOption {
	return func(r *Router) { r.scorer = scorer }
}

// WithTraceSink records each routing pass on the given sink.
func WithTraceSink(sink ports.TraceSink) RouterOption {
	return func(r *Router) { r.sink = sink }
}

// WithMetrics reports routing metrics to the given collector.
func WithMetrics(metrics ports.MetricsCollector) RouterOption {
	return func(r *Router) { r.metrics = metrics }
}

// NewRouter creates a router over the given chat client, registry, and
// routing policy. The policy becomes the system message of every pass.
func NewRouter(llm ports.ChatClient, registry *Registry, policy string, logger *zap.Logger, opts ...RouterOption) (*Router, error) {
	if llm == nil {
		return nil, fmt.Errorf("chat client cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if strings.TrimSpace(policy) == "" {
		return nil, fmt.Errorf("routing policy cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		llm:      llm,
		registry: registry,
		policy:   policy,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetQuery stores the query the next Run will route. The text is
// whitespace-trimmed and Unicode-normalized so equivalent inputs route
// identically.
func (r *Router) SetQuery(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentQuery = norm.NFC.String(strings.TrimSpace(query))
}

// Query returns the currently staged query.
func (r *Router) Query() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentQuery
}

// Run routes the staged query through the routing model and returns the
// final answer text. Run fails only when the routing model itself is
// unreachable or the query is empty; anomalies in capability selection are
// logged and the model's text is returned regardless.
func (r *Router) Run(ctx context.Context) (string, error) {
	query := r.Query()
	if query == "" {
		return "", fmt.Errorf("no query staged; call SetQuery first")
	}

	caps := r.registry.Capabilities()
	tools := make([]ports.ToolDefinition, 0, len(caps))
	invokers := make(map[string]Capability, len(caps))
	for _, c := range caps {
		tools = append(tools, ports.ToolDefinition{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.Parameters,
		})
		invokers[c.Name] = c
	}

	messages := []ports.Message{{Role: ports.RoleUser, Content: query}}
	invocations := 0
	var finalText string
	settled := false

	for turn := 0; turn < maxToolTurns; turn++ {
		resp, err := r.llm.Chat(ctx, ports.ChatRequest{
			System:   r.policy,
			Messages: messages,
			Tools:    tools,
			Options:  map[string]any{"temperature": 0.0},
		})
		if err != nil {
			return "", fmt.Errorf("routing request: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			finalText = resp.Text
			settled = true
			break
		}

		messages = append(messages, ports.Message{
			Role:      ports.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			answer := r.invoke(ctx, invokers, call, query)
			invocations++
			messages = append(messages, ports.Message{
				Role:       ports.RoleTool,
				Content:    answer,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	if !settled {
		return "", fmt.Errorf("routing model kept requesting capabilities after %d turns", maxToolTurns)
	}

	r.checkInvocations(query, invocations)

	traceID := ""
	if r.sink != nil {
		traceID = r.sink.Record(ctx, routerTraceName, query, finalText)
	}
	if r.scorer != nil {
		r.scorer.ScoreTrace(ctx, traceID, query, finalText)
	}

	return finalText, nil
}

// invoke executes one capability call. Unknown capability names and
// malformed arguments fall back to the staged query rather than aborting
// the pass.
func (r *Router) invoke(ctx context.Context, invokers map[string]Capability, call ports.ToolCall, fallbackQuery string) string {
	capability, ok := invokers[call.Name]
	if !ok {
		r.logger.Warn("routing model requested unknown capability",
			zap.String("capability", call.Name))
		if r.metrics != nil {
			r.metrics.RecordCounter("routing_unknown_capability_total", 1, nil)
		}
		return fmt.Sprintf("No capability named %q is available.", call.Name)
	}

	query := fallbackQuery
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		r.logger.Warn("malformed capability arguments",
			zap.String("capability", call.Name),
			zap.Error(err))
	} else if strings.TrimSpace(args.Query) != "" {
		query = args.Query
	}

	r.logger.Info("invoking capability",
		zap.String("capability", call.Name),
		zap.String("query", query))
	return capability.Invoke(ctx, query)
}

// checkInvocations flags passes where the model selected zero or more than
// one capability. Either case is an anomaly worth watching but never a
// failure: the model's final text still goes back to the caller.
func (r *Router) checkInvocations(query string, invocations int) {
	if invocations == 1 {
		return
	}

	r.logger.Warn("routing pass invoked unexpected number of capabilities",
		zap.Int("invocations", invocations),
		zap.String("query", query))
	if r.metrics != nil {
		r.metrics.RecordCounter("routing_anomalies_total", 1, map[string]string{
			"kind": anomalyKind(invocations),
		})
	}
}

func anomalyKind(invocations int) string {
	if invocations == 0 {
		return "none_selected"
	}
	return "multiple_selected"
}
