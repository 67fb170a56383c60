// Package server assembles the fiber application.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"raizes/internal/config"
	"raizes/internal/http/handlers"
	"raizes/internal/http/middleware"
	"raizes/internal/infra/cache"
	"raizes/internal/infra/ratelimit"
	"raizes/internal/report"
	"raizes/internal/upstream"
)

// Deps are the collaborators of the application. Redis may be nil, which
// disables the report cache.
type Deps struct {
	Config   config.Config
	Redis    *redis.Client
	Renderer report.Renderer
	Upstream *upstream.Client
	Limiter  fiber.Storage
}

// New creates and configures the fiber app.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler,
	})

	store := d.Limiter
	if store == nil && cfg.RateLimiter.UserLimit > 0 {
		store = ratelimit.NewStore(ratelimit.RedisConfig{Addr: cfg.Cache.RedisHost, DB: cfg.Cache.RateLimitDB})
	}
	middleware.Register(app, cfg, store)
	RegisterRoutes(app, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app.
func RegisterRoutes(app *fiber.App, d Deps) {
	cfg := d.Config

	api := d.Upstream
	if api == nil {
		api = upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	}
	proxy := handlers.NewProxyService(api)

	var rc *cache.ReportCache
	if cfg.Cache.ReportCacheEnabled {
		rc = cache.New(d.Redis, cfg.Cache.ReportCacheTTL)
	}
	reports := handlers.NewReportService(d.Renderer, rc)
	health := handlers.NewHealthService(cfg.Environment)

	app.Get("/teste", handlers.Welcome)
	app.Get("/health", health.Health)

	g := app.Group("/api")
	g.Post("/register", proxy.Register)
	g.Get("/login", proxy.Login)
	g.Post("/quiz", proxy.CreateQuiz)
	g.Put("/quiz", proxy.UpdateQuiz)
	g.Get("/quiz", proxy.QuizAvailable)
	g.Get("/quiz/getPacientes/:idUser", proxy.Patients)
	g.Get("/quiz/resultado/:idQuiz/:idUser", proxy.QuizResult)
	g.Get("/quiz/:idQuiz", proxy.Quiz)

	app.Post("/generatepdf", reports.Generate)

	if cfg.Server.EnableMonitor {
		app.Get("/monitor", monitor.New(monitor.Config{
			Title:   "raizes",
			Refresh: 3 * time.Second,
		}))
	}
}
