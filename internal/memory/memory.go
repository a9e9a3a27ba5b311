// Package memory is the companion's long-term memory: a local vector store
// of extracted facts, queried by similarity on every exchange.
package memory

import "context"

// Hit is one retrieved memory.
type Hit struct {
	ID    string
	Text  string
	Score float32
}

// Store is the persistence boundary for memories. Implementations must be
// safe for concurrent use.
type Store interface {
	// Store persists one memory text and returns its ID.
	Store(ctx context.Context, text string, metadata map[string]string) (string, error)

	// Query returns up to limit memories ranked by similarity to text.
	// An empty store yields an empty result, not an error.
	Query(ctx context.Context, text string, limit int) ([]Hit, error)

	// Count reports how many memories are stored.
	Count() int

	// Recent returns up to n of the most recently stored memory texts,
	// newest first. Used to seed dream synthesis.
	Recent(n int) []string

	Close() error
}
