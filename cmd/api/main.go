// Package main is the entrypoint for the basicapp API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flaskbasic/basicapp/internal/config"
	"github.com/flaskbasic/basicapp/internal/database"
	"github.com/flaskbasic/basicapp/internal/dispatch"
	"github.com/flaskbasic/basicapp/internal/handler"
	"github.com/flaskbasic/basicapp/internal/metrics"
	"github.com/flaskbasic/basicapp/internal/middleware"
	"github.com/flaskbasic/basicapp/internal/model"
	"github.com/flaskbasic/basicapp/internal/server"
	"github.com/flaskbasic/basicapp/internal/service"
)

// APIPrefix is the mount point of the dispatch rules.
const APIPrefix = "/api/v1"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	databaseURL := cfg.DatabaseURL()
	db, err := database.Open(ctx, databaseURL, logger)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, databaseURL)),
			slog.String("database_url", redactURL(databaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database", slog.String("mode", string(cfg.Mode)))

	if cfg.AutoMigrate {
		if err := db.Migrate(); err != nil {
			logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, databaseURL)))
			db.Close()
			os.Exit(1)
		}
	}

	recorder, gatherer, prom := initMetrics(cfg, logger)

	users := model.NewUserStore(db, logger)
	dependents := model.NewDependentStore(db, logger)
	userService := service.NewUserService(users, recorder)
	dependentService := service.NewDependentService(dependents, users, recorder)

	if len(cfg.Samples) > 0 {
		created, err := dependentService.Seed(ctx, sampleDependents(cfg.Samples))
		if err != nil {
			logger.Error("failed to seed sample data", slog.String("error", err.Error()))
			db.Close()
			os.Exit(1)
		}
		logger.Info("sample data loaded", slog.Int("created", created), slog.Int("samples", len(cfg.Samples)))
	}

	h := handler.New(userService, dependentService, logger)
	endpoint, err := dispatch.New(dispatch.Options{
		Prefix:     APIPrefix,
		AuthToken:  cfg.AuthToken,
		AuthHeader: cfg.AuthHeader,
		Logger:     logger,
		Recorder:   recorder,
	}, h.Rules())
	if err != nil {
		logger.Error("failed to build dispatch table", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
	if cfg.AuthToken == "" {
		logger.Warn("API_AUTH_TOKEN is empty; api routes are unauthenticated")
	}

	r := setupRouter(cfg, endpoint, h, handler.NewHealthHandler(db), handler.NewMetricsHandler(gatherer), prom, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("database", func(context.Context) error {
		return db.Close()
	})

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("app", cfg.AppName),
		slog.String("mode", string(cfg.Mode)),
		slog.Int("rules", len(endpoint.Rules())),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initMetrics returns the recorder for the application. With metrics
// disabled it is a no-op and the gatherer is nil.
func initMetrics(cfg *config.Config, logger *slog.Logger) (metrics.Recorder, prometheus.Gatherer, *metrics.PrometheusRecorder) {
	if !cfg.MetricsEnabled {
		return metrics.NewNoop(), nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prom, err := metrics.NewPrometheus(reg)
	if err != nil {
		logger.Warn("metrics disabled", slog.String("error", err.Error()))
		return metrics.NewNoop(), nil, nil
	}
	return prom, reg, prom
}

func sampleDependents(samples []config.SampleDependent) []*model.Dependent {
	out := make([]*model.Dependent, 0, len(samples))
	for _, s := range samples {
		out = append(out, &model.Dependent{Name2: s.Name, Age2: s.Age})
	}
	return out
}

// setupRouter configures the chi router with all routes and middleware.
// prom may be nil when metrics are disabled.
func setupRouter(
	cfg *config.Config,
	endpoint *dispatch.Endpoint,
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	prom *metrics.PrometheusRecorder,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins, cfg.AuthHeader)))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	if prom != nil {
		r.Use(prom.Instrument)
	}

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	endpoint.Mount(r)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
