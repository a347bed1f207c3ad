// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/answer"
	"github.com/poiesic/gleaner/storage"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8000"

	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

var (
	// ErrAnswererRequired is returned when no answerer is provided.
	ErrAnswererRequired = errors.New("answerer required")

	// ErrIndexRequired is returned when no vector index is provided.
	ErrIndexRequired = errors.New("vector index required")
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query   string            `json:"query"`
	NChunks *int              `json:"n_chunks,omitempty"`
	Where   map[string]string `json:"where,omitempty"`
}

// AskResponse is the body of a successful POST /ask.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Source is one retrieved excerpt in an AskResponse.
type Source struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	SourceURL string  `json:"source_url"`
	Snippet   string  `json:"snippet"`
	Score     float32 `json:"score"`
}

// Server serves questions against the vector index.
type Server struct {
	mux      *http.ServeMux
	answerer *answer.Answerer
	index    storage.VectorIndex
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a Server answering with answerer and reporting health from index.
func NewServer(answerer *answer.Answerer, index storage.VectorIndex, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	s := &Server{
		mux:      http.NewServeMux(),
		answerer: answerer,
		index:    index,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api", s.handleInfo)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, answer.ErrEmptyQuery.Error())
		return
	}
	n := answer.DefaultChunks
	if req.NChunks != nil {
		n = *req.NChunks
	}
	n = answer.ClampChunks(n)

	result, err := s.answerer.Ask(r.Context(), query, n, req.Where)
	if err != nil {
		status, detail := errorStatus(err)
		s.logger.Warn("ask failed", "status", status, "err", err)
		writeError(w, status, detail)
		return
	}

	resp := AskResponse{Answer: result.Text, Sources: make([]Source, 0, len(result.Sources))}
	for _, src := range result.Sources {
		resp.Sources = append(resp.Sources, Source{
			Title:     src.Title,
			Author:    src.Author,
			SourceURL: src.SourceURL,
			Snippet:   src.Snippet,
			Score:     src.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chunks": count})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "gleaner answer API",
		"health":  "/health",
		"ask":     `POST /ask with {"query": "Your question?"}`,
	})
}

// errorStatus maps an answer failure to an HTTP status and client-facing detail.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, answer.ErrEmptyQuery):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ai.ErrAuthentication):
		return http.StatusUnauthorized, "invalid or missing API key"
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, "model rate limit exceeded; retry later"
	case errors.Is(err, ai.ErrTransient), errors.Is(err, ai.ErrFatal):
		return http.StatusBadGateway, "model API error: " + err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request canceled"
	}
	return http.StatusInternalServerError, err.Error()
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
