package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/unitprice/internal/calculator"
	"github.com/noah-isme/unitprice/internal/common"
	"github.com/noah-isme/unitprice/internal/config"
	"github.com/noah-isme/unitprice/internal/health"
	"github.com/noah-isme/unitprice/internal/obs"
	"github.com/noah-isme/unitprice/internal/ratelimit"
	"github.com/noah-isme/unitprice/internal/security"
)

type routerConfig struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Calculator     *calculator.Handler
	Limiter        ratelimit.Allower
	HTTPMetrics    *obs.HTTPMetrics
	TracingEnabled bool
	Health         health.Handler
	Pprof          bool
}

func newRouter(rc routerConfig) http.Handler {
	cfg := rc.Config
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(common.ProxyTrust{Trusted: cfg.TrustedProxies}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if rc.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if rc.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rc.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rc.Logger, Quiet: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.HSTSEnabled, TrustForwardedProto: len(cfg.TrustedProxies) > 0}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if rc.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if rc.Pprof {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	r.Get("/health/live", rc.Health.Live)
	r.Get("/health/ready", rc.Health.Ready)

	limit := ratelimit.Handler{
		Limiter: rc.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("calc:"),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			rc.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	h := rc.Calculator
	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/units", h.Units)
		v.Get("/defaults", h.Defaults)
		v.Get("/presets", h.Presets)
		v.Get("/presets/{id}", h.Preset)

		v.Group(func(calc chi.Router) {
			calc.Use(limit.Middleware)
			calc.Get("/calculate", h.CalculateQuery)
			calc.Post("/calculate", h.Calculate)
			calc.Post("/presets/{id}/calculate", h.PresetCalculate)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
