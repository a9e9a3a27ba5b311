package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const (
	collectionName = "memories"

	// recentKeep bounds the sidecar list of recent memory texts. chromem-go
	// has no list-documents API, so dream synthesis reads from this instead.
	recentKeep = 50
)

// ChromemStore implements Store on chromem-go, an embedded pure-Go vector
// database persisted under a local directory.
type ChromemStore struct {
	mu         sync.Mutex
	col        *chromem.Collection
	recent     []string // newest last
	recentPath string
}

// NewChromemStore opens (or creates) the vector database at dbPath. The
// embedder converts memory text to vectors on both store and query.
func NewChromemStore(dbPath string, embedder Embedder) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}

	embed := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})

	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open memory collection: %w", err)
	}

	s := &ChromemStore{
		col:        col,
		recentPath: dbPath + ".recent.json",
	}
	s.loadRecent()
	return s, nil
}

func (s *ChromemStore) Store(ctx context.Context, text string, metadata map[string]string) (string, error) {
	id := uuid.NewString()

	err := s.col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  text,
		Metadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("store memory: %w", err)
	}

	s.mu.Lock()
	s.recent = append(s.recent, text)
	if len(s.recent) > recentKeep {
		s.recent = s.recent[len(s.recent)-recentKeep:]
	}
	s.saveRecentLocked()
	s.mu.Unlock()

	return id, nil
}

func (s *ChromemStore) Query(ctx context.Context, text string, limit int) ([]Hit, error) {
	// chromem-go rejects nResults greater than the collection size.
	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	if limit <= 0 {
		return nil, nil
	}

	results, err := s.col.Query(ctx, text, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Text: r.Content, Score: r.Similarity})
	}
	return hits, nil
}

func (s *ChromemStore) Count() int {
	return s.col.Count()
}

func (s *ChromemStore) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.recent) == 0 {
		return nil
	}
	if n > len(s.recent) {
		n = len(s.recent)
	}

	out := make([]string, 0, n)
	for i := len(s.recent) - 1; i >= len(s.recent)-n; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

func (s *ChromemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveRecentLocked()
	return nil
}

func (s *ChromemStore) loadRecent() {
	data, err := os.ReadFile(s.recentPath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &s.recent); err != nil {
		log.Printf("[memory] discarding corrupt recent list: %v", err)
		s.recent = nil
	}
}

// saveRecentLocked persists the recent list best-effort. Losing it only
// degrades dreams, never stored memories.
func (s *ChromemStore) saveRecentLocked() {
	data, err := json.Marshal(s.recent)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.recentPath, data, 0644); err != nil {
		log.Printf("[memory] save recent list: %v", err)
	}
}
