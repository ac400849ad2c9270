package main

import (
	"log"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"usagelens/internal/analytics"
	"usagelens/internal/config"
	"usagelens/internal/db"
	"usagelens/internal/http/handlers"
	appmw "usagelens/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.AnalyticsTimeZone)
	if err != nil {
		logger.Warn("invalid APP_ANALYTICS_TZ, falling back to UTC",
			zap.String("zone", cfg.AnalyticsTimeZone), zap.Error(err))
		loc = time.UTC
	}

	analytics.InitMetrics()
	svc := analytics.NewService(gdb, logger, loc)
	svc.StartRetentionWorker(cfg.RetentionDays)

	if err := db.EnsureBootstrapAPIKey(gdb, cfg); err != nil {
		logger.Fatal("failed to ensure bootstrap API key", zap.Error(err))
	}

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	auth := appmw.BearerAuth(gdb)

	r.POST("/v1/events", auth(handlers.IngestHandler(svc)))

	r.POST("/v1/apikeys", auth(handlers.CreateAPIKeyHandler(gdb)))

	r.GET("/v1/analytics/usage", auth(handlers.UsageAnalyticsHandler(svc)))
	r.GET("/v1/analytics/performance", auth(handlers.PerformanceMetricsHandler(svc)))
	r.GET("/v1/analytics/recent", auth(handlers.RecentRequests(gdb)))

	r.POST("/v1/metrics/custom", auth(handlers.RecordMetricHandler(svc)))
	r.GET("/v1/metrics/custom", auth(handlers.CustomMetricsHandler(svc)))

	r.GET("/v1/metrics/prometheus", auth(handlers.TenantMetricsHandler()))

	// Global middleware chain: request logger, then the self-instrumentation
	// usage-reporting hook, then the router.
	handler := appmw.RequestLogger(logger)(
		appmw.UsageReporting(svc, cfg.BootstrapTenant)(r.Handler))

	logger.Info("usagelens listening", zap.String("addr", cfg.ListenAddr))
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
