// Package server is the HTTP face of the companion: a small JSON API the
// desktop shell and dashboards talk to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/palproject/pal/internal/config"
	"github.com/palproject/pal/internal/growth"
)

const historyLimit = 50

// ChatResult is one completed exchange as seen by an HTTP client.
type ChatResult struct {
	Response      string `json:"response"`
	Mood          string `json:"mood"`
	SkillUnlocked string `json:"skill_unlocked,omitempty"`
}

// ExchangeFunc runs one full exchange: retrieval, generation, intake.
type ExchangeFunc func(ctx context.Context, message string) (ChatResult, error)

// StreamFunc is ExchangeFunc with the reply delivered incrementally.
type StreamFunc func(ctx context.Context, message string, onChunk func(string)) (ChatResult, error)

// MemoryReader is the read-only slice of the memory store the API exposes.
type MemoryReader interface {
	Count() int
	Recent(n int) []string
}

type Server struct {
	addr      string
	engine    *growth.Engine
	mem       MemoryReader
	exchange  ExchangeFunc
	stream    StreamFunc
	wsHandler http.HandlerFunc
	srv       *http.Server
}

func New(cfg config.GatewayConfig, engine *growth.Engine, mem MemoryReader, exchange ExchangeFunc, stream StreamFunc, wsHandler http.HandlerFunc) *Server {
	return &Server{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		engine:    engine,
		mem:       mem,
		exchange:  exchange,
		stream:    stream,
		wsHandler: wsHandler,
	}
}

// Routes builds the API mux. Split out so tests can hit handlers without a
// listener.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /identity", s.handleIdentity)
	mux.HandleFunc("GET /brain", s.handleBrain)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/stream", s.handleChatStream)
	mux.HandleFunc("POST /reset-session", s.handleResetSession)
	if s.wsHandler != nil {
		mux.HandleFunc("/ws", s.wsHandler)
	}
	return mux
}

func (s *Server) Start(_ context.Context) error {
	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	go func() {
		log.Printf("[server] listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[server] listen error: %v", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "name": "Pal API"})
}

func (s *Server) handleIdentity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.IdentityInfo(time.Now()))
}

func (s *Server) handleBrain(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       s.engine.Status(time.Now()),
		"memory_count": s.mem.Count(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	memories := s.mem.Recent(historyLimit)
	if memories == nil {
		memories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	result, err := s.exchange(r.Context(), req.Message)
	if err != nil {
		log.Printf("[server] chat failed: %v", err)
		writeError(w, http.StatusInternalServerError, "exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChatStream replies over SSE: "chunk" events carry reply fragments,
// one final "done" event carries the full ChatResult.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	result, err := s.stream(r.Context(), message, func(chunk string) {
		data, merr := json.Marshal(map[string]string{"text": chunk})
		if merr != nil {
			return
		}
		fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
		flusher.Flush()
	})
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: {}\n\n")
		flusher.Flush()
		return
	}

	data, merr := json.Marshal(result)
	if merr != nil {
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) handleResetSession(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.ResetSession(time.Now()); err != nil {
		log.Printf("[server] reset session: %v", err)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
