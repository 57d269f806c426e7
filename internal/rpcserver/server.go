package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/procsupervisor"
)

// Server is one service's RPC endpoint: a single POST /mcp route plus a
// GET /healthz route, wrapped in the same chi middleware stack as the
// teacher's HTTP server (spec AMBIENT STACK).
type Server struct {
	Name     string
	Version  string
	Port     int
	log      zerolog.Logger
	registry *Registry
	sessions *SessionRegistry
	onFault  func(producer, action string, err error)
	http     *http.Server
}

// NewServer builds a Server for one service. onFault, if non-nil, is called
// for every internal fault ("internal fault ... logged to
// compliance as error event") so the caller can wire it to the compliance
// client without this package importing the compliance service.
func NewServer(name, version string, port int, registry *Registry, log zerolog.Logger, onFault func(producer, action string, err error)) *Server {
	return &Server{
		Name:     name,
		Version:  version,
		Port:     port,
		log:      log.With().Str("service", name).Logger(),
		registry: registry,
		sessions: NewSessionRegistry(10 * time.Minute),
		onFault:  onFault,
	}
}

// Router builds the chi router for this service.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "GET"},
		AllowedHeaders: []string{"Content-Type", "Accept", "mcp-session-id"},
	}))

	r.Post("/mcp", s.handleMCP)
	r.Get("/healthz", s.handleHealth)
	return r
}

// ListenAndServe starts the HTTP server with a conservative timeout profile
// (trader-go/internal/server/server.go).
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Int("port", s.Port).Msg("service listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and the session reaper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// handleHealth reports liveness plus the self resource reading
// (procsupervisor.ReadSelfHealth) that the process supervisor's
// aggregate health view polls from every child service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"service": s.Name,
		"status":  "ok",
		"time":    time.Now().UTC(),
		"self":    procsupervisor.ReadSelfHealth(),
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.writeError(w, nil, apperr.CodeParseError, "invalid JSON body")
		return
	}

	if env.Method != "initialize" {
		sessionID := r.Header.Get("mcp-session-id")
		if !s.sessions.Touch(sessionID) {
			s.writeError(w, env.ID, apperr.CodeSessionRequired, "mcp-session-id header required")
			return
		}
	}

	switch env.Method {
	case "initialize":
		s.handleInitialize(w, env)
	case "tools/list":
		s.writeResult(w, env.ID, "", ToolsListResult{Tools: s.registry.List()})
	case "tools/call":
		s.handleToolsCall(w, r.Context(), env)
	default:
		s.writeError(w, env.ID, apperr.CodeMethodNotFound, "method not found: "+env.Method)
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, env Envelope) {
	var params InitializeParams
	if len(env.Params) > 0 {
		if err := json.Unmarshal(env.Params, &params); err != nil {
			s.writeError(w, env.ID, apperr.CodeInvalidParams, "invalid initialize params")
			return
		}
	}
	sess := s.sessions.Create(params.ProtocolVersion, params.ClientInfo)
	result := InitializeResult{
		ServerInfo:   ServerInfo{Name: s.Name, Version: s.Version},
		Capabilities: map[string]any{"tools": map[string]any{}},
	}
	s.writeResult(w, env.ID, sess.SessionID, result)
}

func (s *Server) handleToolsCall(w http.ResponseWriter, ctx context.Context, env Envelope) {
	var params ToolsCallParams
	if err := json.Unmarshal(env.Params, &params); err != nil {
		s.writeError(w, env.ID, apperr.CodeInvalidParams, "invalid tools/call params")
		return
	}
	if _, ok := s.registry.Lookup(params.Name); !ok {
		s.writeError(w, env.ID, apperr.CodeMethodNotFound, "unknown tool: "+params.Name)
		return
	}

	value, err := s.callWithRecover(ctx, params.Name, params.Arguments)
	if err != nil {
		// Schema/parameter violations are framework-level JSON-RPC errors
		// (spec §4.1, §7), not internal faults; they must not reach
		// onFault or be wrapped as a {success:false} result.
		var re *apperr.RPCError
		if errors.As(err, &re) {
			s.writeError(w, env.ID, re.Code, re.Message)
			return
		}
		// Internal fault: recovered handler error, not a business
		// refusal (those are returned as normal values by the handler).
		if s.onFault != nil {
			s.onFault(s.Name, params.Name, err)
		}
		value = apperr.InternalFault(err)
	}

	wrapped, err := WrapToolResult(value)
	if err != nil {
		s.writeError(w, env.ID, apperr.CodeInternalError, "failed to encode result")
		return
	}
	s.writeResult(w, env.ID, "", wrapped)
}

func (s *Server) callWithRecover(ctx context.Context, name string, args json.RawMessage) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in tool %s: %v", name, rec)
		}
	}()
	return s.registry.Call(ctx, name, args)
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, sessionID string, result any) {
	if sessionID != "" {
		w.Header().Set("mcp-session-id", sessionID)
	}
	resp := Response{JSONRPC: "2.0", ID: id, Result: result}
	s.writeSSE(w, resp)
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	resp := Response{JSONRPC: "2.0", ID: id, Error: &ResponseError{Code: code, Message: message}}
	s.writeSSE(w, resp)
}

func (s *Server) writeSSE(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal SSE response")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
