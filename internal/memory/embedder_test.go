package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/palproject/pal/internal/config"
)

func newEmbeddingServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: vector}},
		})
	}))
}

func embedderConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Embedding.BaseURL = baseURL
	cfg.Embedding.APIKey = "test-key"
	cfg.Embedding.Model = "text-embedding-3-small"
	return cfg
}

func TestEmbed(t *testing.T) {
	server := newEmbeddingServer(t, []float32{0.1, 0.2, 0.3})
	defer server.Close()

	embedder := NewEmbedder(embedderConfig(server.URL))
	vector, err := embedder.Embed(context.Background(), "Sam likes coffee")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("vector len = %d, want 3", len(vector))
	}
}

func TestEmbedEmptyText(t *testing.T) {
	embedder := NewEmbedder(embedderConfig("http://localhost:1"))
	if _, err := embedder.Embed(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	server := newEmbeddingServer(t, []float32{0.1, 0.2})
	defer server.Close()

	cfg := embedderConfig(server.URL)
	cfg.Embedding.Dimension = 3

	embedder := NewEmbedder(cfg)
	if _, err := embedder.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	embedder := NewEmbedder(embedderConfig(server.URL))
	if _, err := embedder.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error for http 401")
	}
}
