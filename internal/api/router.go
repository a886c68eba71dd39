package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goldenpath-ai/adaptive-core/internal/api/handlers"
	mw "github.com/goldenpath-ai/adaptive-core/internal/api/middleware"
	"github.com/goldenpath-ai/adaptive-core/internal/buildconfig"
	"github.com/goldenpath-ai/adaptive-core/internal/config"
	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/goldenpath-ai/adaptive-core/internal/service"
	"github.com/goldenpath-ai/adaptive-core/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Refresher *service.RefresherService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	tenantStore := store.NewTenantStore(db)
	profileStore := store.NewProfileStore(db)
	signalStore := store.NewSignalStore(db)
	ruleStore := store.NewRuleStore(db)
	curiositySignalStore := store.NewCuriositySignalStore(db)
	curiosityCache := store.NewCuriosityProfileCache(db)
	weightsStore := store.NewObjectiveWeightsStore(db)
	eventStore := store.NewOptimizationEventStore(db)
	catalog := store.NewContentCatalog(db)

	// Services
	adaptationCfg := domain.DefaultAdaptationConfig()
	curiosityCfg := domain.DefaultCuriosityConfig()
	optimizerCfg := domain.DefaultOptimizerConfig()

	adaptationSvc := service.NewAdaptationService(profileStore, signalStore, ruleStore, adaptationCfg, logger)
	curiositySvc := service.NewCuriosityService(curiositySignalStore, curiosityCache, curiosityCfg, logger)
	refresherSvc := service.NewRefresherService(curiositySvc, logger)
	optimizerSvc := service.NewOptimizerService(adaptationSvc, catalog, weightsStore, eventStore, optimizerCfg, adaptationCfg, logger)

	// Curiosity feeds both the decision gate and the path search.
	curiositySvc.SetRefresher(refresherSvc)
	adaptationSvc.SetCuriosityReader(curiositySvc)
	optimizerSvc.SetCuriosityReader(curiositySvc)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	adaptationHandler := handlers.NewAdaptationHandler(adaptationSvc)
	rulesHandler := handlers.NewRulesHandler(adaptationSvc)
	curiosityHandler := handlers.NewCuriosityHandler(curiositySvc)
	optimizerHandler := handlers.NewOptimizerHandler(optimizerSvc, config.OptimizeTimeout())

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Refresher: refresherSvc,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Tenant creation is the unauthenticated bootstrap endpoint.
	r.Post("/v1/tenants", tenantHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(tenantStore))

		// Rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", rulesHandler.List)
			r.Post("/", rulesHandler.Create)
			r.Put("/{id}", rulesHandler.Update)
		})

		// Learner-scoped engines
		r.Route("/learners/{learnerID}", func(r chi.Router) {
			// Adaptation
			r.Get("/profile", adaptationHandler.GetProfile)
			r.Post("/signals", adaptationHandler.RecordSignals)
			r.Get("/mastery/{competencyID}", adaptationHandler.GetMastery)
			r.Get("/zpd", adaptationHandler.GetZPD)
			r.Get("/difficulty", adaptationHandler.GetDifficulty)
			r.Get("/fatigue", adaptationHandler.AssessFatigue)
			r.Post("/decision-gate", adaptationHandler.EvaluateDecisionGate)
			r.Post("/next-steps", adaptationHandler.ScoreNextSteps)
			r.Get("/history", adaptationHandler.GetHistory)

			// Curiosity
			r.Route("/curiosity", func(r chi.Router) {
				r.Post("/signals", curiosityHandler.RecordSignal)
				r.Get("/profile", curiosityHandler.GetProfile)
				r.Get("/clusters", curiosityHandler.GetClusters)
				r.Get("/emerging", curiosityHandler.GetEmerging)
				r.Get("/score", curiosityHandler.GetScore)
				r.Get("/suggestions", curiosityHandler.GetSuggestions)
				r.Get("/triggers", curiosityHandler.GetTriggers)
			})

			// Path optimization
			r.Route("/path", func(r chi.Router) {
				r.Post("/optimize", optimizerHandler.Optimize)
				r.Post("/simulate", optimizerHandler.Simulate)
				r.Post("/compare", optimizerHandler.Compare)
				r.Get("/weights", optimizerHandler.GetWeights)
				r.Put("/weights", optimizerHandler.SetWeights)
				r.Get("/history", optimizerHandler.GetHistory)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage lifecycle
// themselves.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
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

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.TenantStore            = (*store.TenantStore)(nil)
	_ domain.ProfileStore           = (*store.ProfileStore)(nil)
	_ domain.SignalStore            = (*store.SignalStore)(nil)
	_ domain.RuleStore              = (*store.RuleStore)(nil)
	_ domain.CuriositySignalStore   = (*store.CuriositySignalStore)(nil)
	_ domain.CuriosityProfileCache  = (*store.CuriosityProfileCache)(nil)
	_ domain.ObjectiveWeightsStore  = (*store.ObjectiveWeightsStore)(nil)
	_ domain.OptimizationEventStore = (*store.OptimizationEventStore)(nil)
	_ domain.ContentCatalog         = (*store.ContentCatalog)(nil)
	_ service.CuriosityReader       = (*service.CuriosityService)(nil)
	_ service.ProfileRefresher      = (*service.CuriosityService)(nil)
)
