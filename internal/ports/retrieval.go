package ports

import (
	"context"

	"github.com/ahrav/go-triage/internal/domain"
)

// Index is a read-only similarity search handle over one domain's passages.
// The on-disk format is owned by the index implementation; the core only
// consumes ranked results.
type Index interface {
	// Search returns the k passages most similar to the query, ordered by
	// non-increasing similarity. Ties keep index-native order. Never
	// returns more than k passages.
	Search(ctx context.Context, query string, k int) ([]domain.Passage, error)

	// Close releases the underlying handle.
	Close() error
}

// IndexOpener opens the retrieval index stored at a location.
// Implementations must fail with an error wrapping nothing in particular;
// the agent layer converts any failure into domain.ErrIndexUnavailable.
type IndexOpener interface {
	Open(ctx context.Context, location string) (Index, error)
}

// Embedder turns text into the vector representation the index searches by.
// Consumed as a black box; the embedding model identity is configuration.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
