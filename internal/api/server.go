package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/liuwen/promptreel/internal/product"
	"github.com/liuwen/promptreel/internal/store"
	"github.com/liuwen/promptreel/internal/workflow"
)

// defaultMaxBody is the maximum allowed request body size; generate
// requests may carry image/video attachments.
const defaultMaxBody int64 = 20 << 20

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store      *store.Store
	flow       *workflow.Controller
	extractor  product.Extractor
	corsOrigin string
	maxBody    int64
	mux        *http.ServeMux
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithCORSOrigin sets the allowed CORS origin (default "*").
func WithCORSOrigin(origin string) ServerOption {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithMaxBody overrides the request body size limit.
func WithMaxBody(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates the API server.
func New(st *store.Store, flow *workflow.Controller, extractor product.Extractor, opts ...ServerOption) *Server {
	srv := &Server{
		store:      st,
		flow:       flow,
		extractor:  extractor,
		corsOrigin: "*",
		maxBody:    defaultMaxBody,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.limitBody(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /api/artifacts/{id}", s.handleGetArtifact)
	s.mux.HandleFunc("GET /api/artifacts/{id}/versions", s.handleVersions)
	s.mux.HandleFunc("POST /api/artifacts/{id}/regenerate", s.handleRegenerate)
	s.mux.HandleFunc("POST /api/artifacts/{id}/edit", s.handleEdit)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/extract_product", s.handleExtractProduct)
	s.mux.HandleFunc("GET /api/healthz", s.handleHealthz)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
