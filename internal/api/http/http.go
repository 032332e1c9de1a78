package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/driftlabs/waitlist-api/internal/middleware"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config is the configuration for the http server
type Config struct {
	Port           string   `mapstructure:"port"`
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// DebugBypass enables honoring the x-debug-bypass header. The header
	// alone does nothing; this server-side flag must be set too.
	DebugBypass bool `mapstructure:"debug_bypass"`

	// SignupPolicy selects the submission variant: require_verification
	// or verify_immediately.
	SignupPolicy string `mapstructure:"signup_policy"`

	// CountFallback is the deterministic value the public count endpoint
	// returns when the store is unreachable.
	CountFallback int `mapstructure:"count_fallback"`
}

// Server is the http server
type Server struct {
	hs      *http.Server
	c       *Config
	policy  entity.SignupPolicy
	rep     dependency.Repository
	mailer  dependency.Mailer
	limiter *ratelimit.Limiter
	ec      dependency.EmailCrypt
	done    chan struct{}
}

// New creates a new server
func New(config *Config) *Server {
	return &Server{
		c:    config,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the http server exits
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start wires the handler dependencies and starts serving.
func (s *Server) Start(ctx context.Context, rep dependency.Repository, mailer dependency.Mailer, limiter *ratelimit.Limiter, ec dependency.EmailCrypt) error {
	switch entity.SignupPolicy(s.c.SignupPolicy) {
	case entity.VerifyImmediately:
		s.policy = entity.VerifyImmediately
	case entity.RequireEmailVerification, "":
		s.policy = entity.RequireEmailVerification
	default:
		return fmt.Errorf("unknown signup policy: %q", s.c.SignupPolicy)
	}

	s.rep = rep
	s.mailer = mailer
	s.limiter = limiter
	s.ec = ec

	addr := fmt.Sprintf("%s:%s", s.c.Address, s.c.Port)
	s.hs = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}

	go func() {
		defer close(s.done)
		slog.Default().InfoContext(ctx, "http server listening", slog.String("addr", addr))
		if err := s.hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Default().ErrorContext(ctx, "http server exited", slog.String("err", err.Error()))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if s.hs == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.hs.Shutdown(shutdownCtx); err != nil {
		slog.Default().ErrorContext(ctx, "http server shutdown", slog.String("err", err.Error()))
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	origins := s.c.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Debug-Bypass"},
		MaxAge:         300,
	})

	r.Use(c.Handler)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.ClientIdentifier)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/waitlist", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleCount)
		r.Get("/stats", s.handleStats)
		r.Head("/stats", s.handleStatsProbe)
		r.Get("/verify", s.handleVerify)
		r.Get("/unsubscribe", s.handleUnsubscribe)
	})

	return r
}

// debugBypassed reports whether this request may skip the bot checks and
// use the relaxed rate limit policy. Requires the server-side flag, never
// the header alone.
func (s *Server) debugBypassed(r *http.Request) bool {
	return s.c.DebugBypass && r.Header.Get("X-Debug-Bypass") == "true"
}
