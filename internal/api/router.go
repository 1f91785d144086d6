package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/credence/internal/api/handlers"
	mw "github.com/Harshitk-cp/credence/internal/api/middleware"
	"github.com/Harshitk-cp/credence/internal/backend"
	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	APIKeys        []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and the counters behind /stats.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires handlers over svcs. ctx bounds background middleware work.
func NewApp(ctx context.Context, svcs *backend.Services, health Pinger, opts Options, logger *zap.Logger) *App {
	hypothesisHandler := handlers.NewHypothesisHandler(svcs.Hypotheses, svcs.Engine, svcs.Propagation, logger)
	evidenceHandler := handlers.NewEvidenceHandler(svcs.Evidence, logger)
	linkHandler := handlers.NewLinkHandler(svcs.Links, logger)
	beliefHandler := handlers.NewBeliefHandler(svcs.Verifications, svcs.Updates, svcs.Analytics, logger)
	assistHandler := handlers.NewAssistHandler(svcs.Assist, logger)

	r := chi.NewRouter()
	app := &App{Router: r, startTime: time.Now()}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(mw.Tracing)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/health", healthHandler(health))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", app.statsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKeys))

		r.Route("/hypotheses", func(r chi.Router) {
			r.Get("/", hypothesisHandler.List)
			r.Post("/", hypothesisHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", hypothesisHandler.Get)
				r.Put("/", hypothesisHandler.SetConfidence)
				r.Delete("/", hypothesisHandler.Delete)
				r.Get("/links", hypothesisHandler.Links)
				r.Get("/verifications", hypothesisHandler.Verifications)
				r.Post("/recompute", hypothesisHandler.Recompute)
				r.Get("/relations", hypothesisHandler.Relations)
				r.Post("/relations", hypothesisHandler.Relate)
				r.Delete("/relations/{to}", hypothesisHandler.Unrelate)
			})
		})
		r.Get("/contradictions", hypothesisHandler.Contradictions)

		r.Route("/evidence", func(r chi.Router) {
			r.Get("/", evidenceHandler.List)
			r.Post("/", evidenceHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", evidenceHandler.Get)
				r.Put("/", evidenceHandler.Update)
				r.Delete("/", evidenceHandler.Delete)
				r.Get("/links", evidenceHandler.Links)
				r.Post("/links", linkHandler.Create)
				r.Get("/links/{hypothesis_id}", linkHandler.Get)
				r.Put("/links/{hypothesis_id}", linkHandler.Update)
				r.Delete("/links/{hypothesis_id}", linkHandler.Delete)
			})
		})

		r.Post("/update", beliefHandler.Update)
		r.Post("/verify", beliefHandler.Verify)
		r.Get("/analytics/accuracy", beliefHandler.Accuracy)

		r.Post("/assist/suggest", assistHandler.Suggest)
		r.Post("/assist/review", assistHandler.Review)
		r.Post("/assist/chat", assistHandler.Chat)
		r.Get("/extract/x", assistHandler.ExtractX)
	})

	return app
}

func healthHandler(health Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": buildconfig.Version()})
	}
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure services satisfy the handler interfaces at compile time.
var (
	_ handlers.HypothesisService   = (*service.HypothesisService)(nil)
	_ handlers.Recomputer          = (*service.Engine)(nil)
	_ handlers.ContradictionFinder = (*service.PropagationService)(nil)
	_ handlers.EvidenceService     = (*service.EvidenceService)(nil)
	_ handlers.LinkService         = (*service.LinkService)(nil)
	_ handlers.VerificationService = (*service.VerificationService)(nil)
	_ handlers.UpdateService       = (*service.UpdateService)(nil)
	_ handlers.AnalyticsService    = (*service.AnalyticsService)(nil)
	_ handlers.AssistService       = (*service.AssistService)(nil)
)
