package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/testutils"
)

func TestNewDomainAgent_Validation(t *testing.T) {
	opener := testutils.NewMockIndexOpener()

	tests := []struct {
		name     string
		agent    domain.AgentType
		location string
		wantErr  bool
	}{
		{name: "valid", agent: domain.AgentHR, location: "storage/vectors/hr_index.db"},
		{name: "unknown type", agent: domain.AgentType("legal"), location: "x.db", wantErr: true},
		{name: "empty location", agent: domain.AgentTech, location: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ag, err := NewDomainAgent(tt.agent, tt.location, opener)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.agent, ag.Type())
			assert.Equal(t, tt.location, ag.IndexLocation())
		})
	}
}

func TestNewDomainAgent_NilOpener(t *testing.T) {
	_, err := NewDomainAgent(domain.AgentHR, "hr.db", nil)
	require.Error(t, err)
}

func TestDomainAgent_IndexWrapsFailures(t *testing.T) {
	opener := testutils.NewMockIndexOpener().
		WithOpenError("tech.db", errors.New("disk read failed"))
	ag, err := NewDomainAgent(domain.AgentTech, "tech.db", opener)
	require.NoError(t, err)

	_, err = ag.Index(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable, "all open failures must map to the index-unavailable class")
	assert.Contains(t, err.Error(), "disk read failed", "original cause should stay visible for operators")
}

func TestDomainAgent_DegradedAnswer(t *testing.T) {
	opener := testutils.NewMockIndexOpener()
	ag, err := NewDomainAgent(domain.AgentFinance, "finance.db", opener)
	require.NoError(t, err)

	first := ag.DegradedAnswer()
	second := ag.DegradedAnswer()
	assert.Equal(t, first, second, "fallback must be deterministic")
	assert.Less(t, len(strings.Fields(first)), 130, "fallback must fit the answer word budget")
	assert.NotEmpty(t, first)
}
