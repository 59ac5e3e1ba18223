// Package server provides the HTTP surface of the arbor chat API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arbor-chat/arbor/internal/auth"
	"github.com/arbor-chat/arbor/internal/chat"
	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/config"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/internal/resume"
	"github.com/arbor-chat/arbor/internal/store"
)

// Server is the HTTP server.
type Server struct {
	router       *chi.Mux
	httpSrv      *http.Server
	cfg          *config.Config
	store        *store.Store
	providers    *provider.Registry
	orchestrator *chat.Orchestrator
	streams      resume.Registry
	auth         *auth.Authenticator
}

// New assembles the server and its routes.
func New(cfg *config.Config, st *store.Store, providers *provider.Registry, orchestrator *chat.Orchestrator, streams resume.Registry, authenticator *auth.Authenticator) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		cfg:          cfg,
		store:        st,
		providers:    providers,
		orchestrator: orchestrator,
		streams:      streams,
		auth:         authenticator,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: chat responses stream.
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router. For tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type contextKey string

const contextKeySession contextKey = "session"

// requireSession authenticates the bearer token and stores the session
// in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeChatError(w, chaterr.New(chaterr.KindUnauthorized, chaterr.ScopeChat))
			return
		}
		sess, err := s.auth.Verify(token)
		if err != nil {
			writeChatError(w, chaterr.New(chaterr.KindUnauthorized, chaterr.ScopeChat))
			return
		}
		ctx := context.WithValue(r.Context(), contextKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// sessionFrom returns the authenticated session stored by
// requireSession.
func sessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(contextKeySession).(*auth.Session)
	return sess
}
