package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
)

// capabilityParameters is the JSON Schema advertised for every agent
// capability: a single required query string.
var capabilityParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The employee's query, passed through verbatim."
		}
	},
	"required": ["query"]
}`)

// capabilityDescriptions tells the routing model what each domain covers.
var capabilityDescriptions = map[domain.AgentType]string{
	domain.AgentHR:      "Answers questions related to Human Resources (policies, benefits, etc).",
	domain.AgentTech:    "Answers Technical Support questions (IT issues, software, etc).",
	domain.AgentFinance: "Answers questions related to Finance (budget, expenses, etc).",
}

// Capability is one named, independently invocable unit of work the router
// can select. Invoke returns only the final answer text; the structured
// AnswerResult stays inside the registry.
type Capability struct {
	// Name is the tool name the routing model selects by, e.g. "HRAgent".
	Name string
	// Description tells the routing model the capability's scope.
	Description string
	// Parameters is the JSON Schema of the capability's arguments.
	Parameters json.RawMessage
	// Invoke answers the query through the capability's agent.
	Invoke func(ctx context.Context, query string) string
}

// Registry owns the domain agents and exposes each as a capability backed
// by the shared answerer. Exactly one capability exists per domain.
type Registry struct {
	mu       sync.RWMutex
	answerer *Answerer
	agents   map[domain.AgentType]*DomainAgent
	order    []domain.AgentType
	logger   *zap.Logger
	metrics  ports.MetricsCollector
}

// NewRegistry creates an empty registry over the given answerer.
// A nil logger disables logging; a nil metrics collector disables metrics.
func NewRegistry(answerer *Answerer, logger *zap.Logger, metrics ports.MetricsCollector) (*Registry, error) {
	if answerer == nil {
		return nil, fmt.Errorf("answerer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		answerer: answerer,
		agents:   make(map[domain.AgentType]*DomainAgent),
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Register adds an agent to the registry. A second registration for the
// same domain fails fast with domain.ErrDuplicateAgent.
func (r *Registry) Register(ag *DomainAgent) error {
	if ag == nil {
		return fmt.Errorf("agent cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[ag.Type()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAgent, ag.Type())
	}
	r.agents[ag.Type()] = ag
	r.order = append(r.order, ag.Type())

	r.logger.Info("registered agent",
		zap.String("domain", ag.Type().String()),
		zap.String("index", ag.IndexLocation()))
	if r.metrics != nil {
		r.metrics.RecordGauge("registered_agents", float64(len(r.agents)), nil)
	}
	return nil
}

// Agent returns the registered agent for a domain, or nil.
func (r *Registry) Agent(t domain.AgentType) *DomainAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[t]
}

// Capabilities returns the registered agents as invocable capabilities in
// registration order.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capability, 0, len(r.order))
	for _, t := range r.order {
		ag := r.agents[t]
		caps = append(caps, Capability{
			Name:        t.ToolName(),
			Description: capabilityDescriptions[t],
			Parameters:  capabilityParameters,
			Invoke: func(ctx context.Context, query string) string {
				result := r.answerer.Answer(ctx, ag, query)
				r.observe(result)
				return result.ResponseText
			},
		})
	}
	return caps
}

// observe reports per-answer metrics.
func (r *Registry) observe(result domain.AnswerResult) {
	if r.metrics == nil {
		return
	}
	labels := map[string]string{"domain": result.Domain.String()}
	r.metrics.RecordCounter("answers_total", 1, labels)
	if result.Degraded {
		r.metrics.RecordCounter("degraded_answers_total", 1, labels)
	}
}

// WarmUp opens every registered index concurrently and reports the domains
// whose indexes are unusable. Warmup failures are advisory: the affected
// agents still serve queries through their degraded answers.
func (r *Registry) WarmUp(ctx context.Context) []domain.AgentType {
	r.mu.RLock()
	agents := make([]*DomainAgent, 0, len(r.order))
	for _, t := range r.order {
		agents = append(agents, r.agents[t])
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	var unavailable []domain.AgentType

	g, gctx := errgroup.WithContext(ctx)
	for _, ag := range agents {
		g.Go(func() error {
			ix, err := ag.Index(gctx)
			if err != nil {
				r.logger.Warn("index unavailable at warmup",
					zap.String("domain", ag.Type().String()),
					zap.Error(err))
				mu.Lock()
				unavailable = append(unavailable, ag.Type())
				mu.Unlock()
				return nil
			}
			return ix.Close()
		})
	}
	// Close errors are the only errors surfaced by the group; they do not
	// affect serviceability.
	if err := g.Wait(); err != nil {
		r.logger.Warn("index warmup close failed", zap.Error(err))
	}

	return unavailable
}
