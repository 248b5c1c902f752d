package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finintel/internal/core"
	"finintel/internal/log"
	"finintel/internal/middleware/ratelimit"
	"finintel/internal/middleware/security"
	"finintel/internal/middleware/trace"
)

// ReportSource produces the current report and can drop memoized ones.
type ReportSource interface {
	Report(ctx context.Context) (core.Report, error)
	Invalidate() int
}

// ReadinessCheck reports whether the data backend can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Options configures optional server behaviour.
type Options struct {
	Logger *log.Logger
	// RateLimitRPM limits /api requests per client and minute; zero disables.
	RateLimitRPM int
	Ready        ReadinessCheck
}

type Server struct {
	http.Server
	reports ReportSource
	ready   ReadinessCheck
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, reports ReportSource, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	clientIPs := security.NewClientIPResolver()

	s := &Server{
		reports: reports,
		ready:   opts.Ready,
		logger:  logger,
		tracer:  trace.NewMiddleware(logger, clientIPs.ClientIP),
	}

	api := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimitRPM > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM})
		limit := s.limiter.Middleware(clientIPs.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		})
		api = func(h http.HandlerFunc) http.Handler { return limit(h) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /api/report", api(s.handleReport))
	mux.Handle("GET /api/summary", api(s.handleSummary))
	mux.Handle("GET /api/monthly", api(s.handleMonthly))
	mux.Handle("GET /api/categories", api(s.handleCategories))
	mux.Handle("GET /api/merchants", api(s.handleMerchants))
	mux.Handle("GET /api/risk", api(s.handleRisk))
	mux.Handle("GET /api/budget", api(s.handleBudget))
	mux.Handle("GET /api/balance", api(s.handleBalance))
	mux.Handle("POST /api/cache/invalidate", api(s.handleInvalidate))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "backend not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
