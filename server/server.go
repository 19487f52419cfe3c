// Package server exposes the mosaic pipeline over HTTP
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mosaicme/mosaicme/config"
	"github.com/mosaicme/mosaicme/export"
	"github.com/mosaicme/mosaicme/mosaic"
	"github.com/mosaicme/mosaicme/palette"
	"github.com/mosaicme/mosaicme/session"
)

const apiPrefix = "/api/v1"

// Version is reported by the health endpoint
const Version = "1.0.0"

// Server wires the mosaic pipeline components behind the HTTP API.
// Every component is constructed once and shared; none hold
// per-request state.
type Server struct {
	cfg      *config.Config
	log      hclog.Logger
	registry *palette.Registry
	gen      *mosaic.Generator
	renderer *export.Renderer
	sessions *session.Store
}

// New creates a Server around already-constructed components
func New(cfg *config.Config, log hclog.Logger, registry *palette.Registry,
	gen *mosaic.Generator, renderer *export.Renderer, sessions *session.Store) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.Named("server"),
		registry: registry,
		gen:      gen,
		renderer: renderer,
		sessions: sessions,
	}
}

// Handler returns the routed HTTP handler with logging and CORS
// middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+apiPrefix+"/health", s.handleHealth)
	mux.HandleFunc("GET "+apiPrefix+"/palettes", s.handlePalettes)
	mux.HandleFunc("GET "+apiPrefix+"/palettes/{type}/colors", s.handlePaletteColors)
	mux.HandleFunc("POST "+apiPrefix+"/upload", s.handleUpload)
	mux.HandleFunc("GET "+apiPrefix+"/mosaic/{sessionId}", s.handleMosaic)
	mux.HandleFunc("GET "+apiPrefix+"/export/{sessionId}/{exportType}", s.handleExport)

	return s.logRequests(s.cors(mux))
}

// envelope is the success wrapper every JSON response uses
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(errorEnvelope{
		Success: false,
		Error:   apiError{Code: code, Message: message},
	})
	if err != nil {
		s.log.Error("failed to encode error response", "error", err)
	}
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
