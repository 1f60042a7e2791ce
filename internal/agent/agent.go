// Package agent implements the routing-and-answering pipeline: domain
// agents, the retrieval-augmented answerer, the capability registry, the
// router, and the automated quality scorer.
package agent

import (
	"context"
	"fmt"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
)

// degradedAnswer is the fixed instruction every agent falls back to when
// retrieval or generation fails. Mirrors the 130-word budget applied to
// grounded answers.
const degradedAnswer = "creatively answer query using less than 130 words."

// DomainAgent is the identity of one domain-specialized agent together with
// access to its retrieval index. Immutable after construction; one instance
// per domain lives for the whole process run.
type DomainAgent struct {
	agentType     domain.AgentType
	indexLocation string
	opener        ports.IndexOpener
}

// NewDomainAgent creates the agent for a domain with the location of its
// on-disk index. The index is not opened here; a missing index only
// matters, and only degrades, at query time.
func NewDomainAgent(agentType domain.AgentType, indexLocation string, opener ports.IndexOpener) (*DomainAgent, error) {
	if !agentType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgentType, agentType)
	}
	if indexLocation == "" {
		return nil, fmt.Errorf("agent %s: index location cannot be empty", agentType)
	}
	if opener == nil {
		return nil, fmt.Errorf("agent %s: index opener cannot be nil", agentType)
	}

	return &DomainAgent{
		agentType:     agentType,
		indexLocation: indexLocation,
		opener:        opener,
	}, nil
}

// Type returns the agent's domain.
func (a *DomainAgent) Type() domain.AgentType { return a.agentType }

// IndexLocation returns the path of the agent's on-disk index.
func (a *DomainAgent) IndexLocation() string { return a.indexLocation }

// Index opens the agent's retrieval index. Any failure is reported as
// domain.ErrIndexUnavailable; callers recover via the degraded answer and
// must not surface the error to the end user.
func (a *DomainAgent) Index(ctx context.Context) (ports.Index, error) {
	ix, err := a.opener.Open(ctx, a.indexLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: agent %s: %v", domain.ErrIndexUnavailable, a.agentType, err)
	}
	return ix, nil
}

// DegradedAnswer returns the agent's fixed fallback response. Pure and
// deterministic; always well under the 130-word budget.
func (a *DomainAgent) DegradedAnswer() string { return degradedAnswer }
