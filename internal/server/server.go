// Package server exposes editor sessions and saved rule sets over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/editor"
	"github.com/sells-group/invoice-agent/internal/store"
)

// Options configures a Server.
type Options struct {
	Port           int
	AllowedOrigins []string
	// SuggestTimeout bounds one AI suggestion request. Zero means no bound
	// beyond the request context.
	SuggestTimeout time.Duration
}

// Server serves the editor API.
type Server struct {
	provider  editor.Provider
	suggester editor.Suggester
	store     store.Store
	sessions  *Registry
	opts      Options
	router    chi.Router
}

// New builds a Server. suggester may be nil when no AI provider is
// configured; suggestion requests then fail with an upstream error.
func New(p editor.Provider, sg editor.Suggester, st store.Store, opts Options) *Server {
	s := &Server{
		provider:  p,
		suggester: sg,
		store:     st,
		sessions:  NewRegistry(),
		opts:      opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session registry.
func (s *Server) Sessions() *Registry {
	return s.sessions
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": s.sessions.Len(),
		})
	})

	r.Route("/api/sessions", func(sr chi.Router) {
		sr.Post("/", s.handleOpenSession)
		sr.Route("/{id}", func(one chi.Router) {
			one.Get("/", s.handleGetSession)
			one.Delete("/", s.handleCloseSession)
			one.Patch("/identity", s.handleSetIdentity)
			one.Put("/cells", s.handleEditCell)
			one.Post("/suggestions", s.handleRequestSuggestions)
			one.Delete("/suggestions", s.handleDismissSuggestions)
			one.Post("/suggestions/apply", s.handleApplySuggestions)
			one.Post("/save", s.handleSave)
		})
	})

	r.Route("/api/rules", func(rr chi.Router) {
		rr.Get("/", s.handleListRules)
		rr.Get("/{id}", s.handleGetRule)
		rr.Delete("/{id}", s.handleDeleteRule)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully and closes every open session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", s.opts.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.CloseAll()
	if err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}
