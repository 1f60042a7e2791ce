package testutils

import (
	"context"
	"sync"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
)

// MockIndex serves a fixed passage list, already ranked.
type MockIndex struct {
	mu sync.Mutex

	passages  []domain.Passage
	searchErr error

	// Queries records every search in call order.
	Queries []string
	Closed  bool
}

var _ ports.Index = (*MockIndex)(nil)

// NewMockIndex creates an index serving the given passages in order.
func NewMockIndex(passages ...domain.Passage) *MockIndex {
	return &MockIndex{passages: passages}
}

// WithSearchError makes every Search call fail with err.
func (m *MockIndex) WithSearchError(err error) *MockIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchErr = err
	return m
}

// Search implements ports.Index, returning at most k passages.
func (m *MockIndex) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)

	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.passages) {
		k = len(m.passages)
	}
	out := make([]domain.Passage, k)
	copy(out, m.passages[:k])
	return out, nil
}

// Close implements ports.Index.
func (m *MockIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// MockIndexOpener hands out a fixed index per location, failing for
// locations it has no index for.
type MockIndexOpener struct {
	mu sync.Mutex

	indexes map[string]*MockIndex
	openErr map[string]error

	// Opens records every open in call order.
	Opens []string
}

var _ ports.IndexOpener = (*MockIndexOpener)(nil)

// NewMockIndexOpener creates an opener with no indexes registered.
func NewMockIndexOpener() *MockIndexOpener {
	return &MockIndexOpener{
		indexes: make(map[string]*MockIndex),
		openErr: make(map[string]error),
	}
}

// WithIndex serves ix for the given location.
func (m *MockIndexOpener) WithIndex(location string, ix *MockIndex) *MockIndexOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[location] = ix
	return m
}

// WithOpenError fails Open for the given location with err.
func (m *MockIndexOpener) WithOpenError(location string, err error) *MockIndexOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr[location] = err
	return m
}

// Open implements ports.IndexOpener.
func (m *MockIndexOpener) Open(ctx context.Context, location string) (ports.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opens = append(m.Opens, location)

	if err := m.openErr[location]; err != nil {
		return nil, err
	}
	ix, ok := m.indexes[location]
	if !ok {
		return nil, domain.ErrIndexUnavailable
	}
	return ix, nil
}

// MockEmbedder returns deterministic vectors keyed by text, or a fallback
// zero-adjacent vector for unknown text.
type MockEmbedder struct {
	mu sync.Mutex

	vectors  map[string][]float32
	fallback []float32
	embedErr error

	// Texts records every embed in call order.
	Texts []string
}

var _ ports.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates an embedder with the given fallback vector.
func NewMockEmbedder(fallback []float32) *MockEmbedder {
	return &MockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: fallback,
	}
}

// WithVector returns vec for exactly the given text.
func (m *MockEmbedder) WithVector(text string, vec []float32) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vec
	return m
}

// WithEmbedError makes every Embed call fail with err.
func (m *MockEmbedder) WithEmbedError(err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
	return m
}

// Embed implements ports.Embedder.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}
