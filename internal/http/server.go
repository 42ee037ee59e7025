// Package http exposes the ledger services as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sysfinance/internal/auth"
	applog "sysfinance/internal/log"
	"sysfinance/internal/middleware/ratelimit"
	"sysfinance/internal/middleware/security"
	"sysfinance/internal/middleware/trace"
	"sysfinance/internal/services"
)

// Services are the application services the API serves.
type Services struct {
	Auth         *services.AuthService
	Tokens       *auth.TokenService
	Transactions *services.TransactionService
	Catalog      *services.CatalogService
	Aggregator   *services.Aggregator
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
	EvolutionMonths    int
	Logger             *applog.Logger
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(context.Context) error
}

// Server is the ledger API server.
type Server struct {
	http.Server
	svc Services

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	ready    func(context.Context) error

	evolutionMonths int
	now             func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.EvolutionMonths < 1 {
		opts.EvolutionMonths = 6
	}

	s := &Server{
		svc:             svc,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{Requests: opts.RateLimitPerMinute, Period: time.Minute}),
		detector:        security.NewDetector(),
		tracer:          trace.NewMiddleware(),
		logger:          logger.WithComponent(applog.ComponentHTTP),
		ready:           opts.Ready,
		evolutionMonths: opts.EvolutionMonths,
		now:             time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Handler)
	r.Use(applog.Middleware(s.logger, trace.FromRequest))
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(func(w http.ResponseWriter, r *http.Request) {
		BadRequestError("request rejected").Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, writeRateLimited))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/banks", func(r chi.Router) {
				r.Get("/", s.handleListBanks)
				r.Post("/", s.handleCreateBank)
				r.Get("/{id}", s.handleGetBank)
				r.Put("/{id}", s.handleUpdateBank)
				r.Delete("/{id}", s.handleDeleteBank)
			})
			r.Route("/vaults", func(r chi.Router) {
				r.Get("/", s.handleListVaults)
				r.Post("/", s.handleCreateVault)
				r.Get("/{id}", s.handleGetVault)
				r.Put("/{id}", s.handleUpdateVault)
				r.Delete("/{id}", s.handleDeleteVault)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Post("/", s.handleCreateCategory)
				r.Put("/{id}", s.handleUpdateCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})
			r.Route("/credit-cards", func(r chi.Router) {
				r.Get("/", s.handleListCreditCards)
				r.Post("/", s.handleCreateCreditCard)
				r.Get("/{id}", s.handleGetCreditCard)
				r.Put("/{id}", s.handleUpdateCreditCard)
				r.Delete("/{id}", s.handleDeleteCreditCard)
			})
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Get("/{id}", s.handleGetTransaction)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})
			r.Route("/recurring", func(r chi.Router) {
				r.Get("/", s.handleListRecurring)
				r.Post("/", s.handleCreateRecurring)
				r.Get("/{id}", s.handleGetRecurring)
				r.Put("/{id}", s.handleUpdateRecurring)
				r.Delete("/{id}", s.handleDeleteRecurring)
			})
			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", s.handleSummary)
				r.Get("/evolution", s.handleEvolution)
			})
			r.Route("/reports/export", func(r chi.Router) {
				r.Get("/", s.handleExportRows)
				r.Post("/sheet", s.handleExportSheet)
			})
			r.Route("/budgets", func(r chi.Router) {
				r.Get("/", s.handleListBudgets)
				r.Post("/", s.handleCreateBudget)
			})
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handleListNotifications)
				r.Post("/{id}/read", s.handleMarkNotificationRead)
			})
		})
	})

	return r
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry after "+w.Header().Get("Retry-After")+"s").Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopping",
			"requests_total", m.TotalRequests,
			"avg_duration", m.AverageDuration().String(),
			"rate_limited", s.limiter.GetMetrics().Rejected,
			"suspicious", s.detector.GetMetrics().SuspiciousRequests)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "dependencies unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// userID returns the authenticated user set by requireAuth.
func userID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
