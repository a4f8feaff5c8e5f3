// Package web implements the webhook HTTP ingress: a thin adapter from
// HTTP requests to conversation turns.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hollis/valet/internal/buildinfo"
	"github.com/hollis/valet/internal/chat"
)

// Responder handles one conversation turn. Implemented by
// agent.Assistant.
type Responder interface {
	HandleMessage(ctx context.Context, callerID string, admin bool, text string) (string, error)
	Cancel(callerID string) bool
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the webhook HTTP server.
type Server struct {
	address   string
	port      int
	responder Responder
	logger    *slog.Logger
	server    *http.Server
}

func NewServer(address string, port int, responder Responder, logger *slog.Logger) *Server {
	return &Server{
		address:   address,
		port:      port,
		responder: responder,
		logger:    logger.With("component", "web"),
	}
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /cancel", s.handleCancel)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /", s.handleRoot)

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:     s.withLogging(mux),
		ReadTimeout: 30 * time.Second,
		// Orchestration runs span several model calls; leave room.
		WriteTimeout: 5 * time.Minute,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting webhook server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// WebhookRequest is one inbound chat message.
type WebhookRequest struct {
	CallerID string `json:"caller_id"`
	Text     string `json:"text"`
	Admin    bool   `json:"admin,omitempty"`
}

// WebhookResponse carries the answer split into transport-sized chunks.
type WebhookResponse struct {
	Chunks []string `json:"chunks"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CallerID) == "" {
		s.errorResponse(w, http.StatusBadRequest, "caller_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	answer, err := s.responder.HandleMessage(r.Context(), req.CallerID, req.Admin, req.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Superseded or cancelled on purpose; nothing to say.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Error("turn failed", "caller", req.CallerID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "agent error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, WebhookResponse{
		Chunks: chat.ChunkText(answer, chat.MaxChunkSize),
	}, s.logger)
}

// CancelRequest identifies the caller whose run should be aborted.
type CancelRequest struct {
	CallerID string `json:"caller_id"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CallerID) == "" {
		s.errorResponse(w, http.StatusBadRequest, "caller_id is required")
		return
	}

	cancelled := s.responder.Cancel(req.CallerID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"cancelled": cancelled}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Valet",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
