package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homedrive/internal/broker"
	"homedrive/internal/database"
	"homedrive/internal/handlers"
	"homedrive/internal/hooks"
	"homedrive/internal/logging"
	"homedrive/internal/metrics"
	"homedrive/internal/middleware"
	"homedrive/internal/queue"
	"homedrive/internal/quota"
	"homedrive/internal/startup"
	"homedrive/internal/thumbs"
	"homedrive/internal/workers"
)

func main() {
	start := time.Now()

	cfg, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		startup.LogFatal("Database initialization failed: %v", err)
	}
	defer db.Close()

	var gen *thumbs.Generator
	if cfg.ThumbnailsEnabled {
		thumbs.InitVips()
		defer thumbs.ShutdownVips()
		gen = thumbs.NewGenerator(cfg.ThumbsDir, cfg.DcrawPath, db)
	}

	accounts := quota.NewAccountant(cfg.DefaultQuota)
	if err := seedQuotas(db, accounts, cfg.MediaDir); err != nil {
		startup.LogFatal("Quota initialization failed: %v", err)
	}

	runGenerate := func(req thumbs.Request) error {
		genStart := time.Now()
		_, err := gen.Generate(req)
		metrics.GenerationDuration.Observe(time.Since(genStart).Seconds())
		switch {
		case err == nil:
			metrics.GenerationsTotal.WithLabelValues("success").Inc()
		case queue.IsExpectedOutcome(err):
			metrics.GenerationsTotal.WithLabelValues("locked").Inc()
		default:
			metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		}
		return err
	}

	var sched queue.Scheduler
	var bridge *broker.Bridge
	if cfg.ThumbnailsEnabled {
		switch cfg.Scheduler {
		case startup.SchedulerBroker:
			bridge, err = broker.Dial(cfg.AmqpURL, cfg.ThumbQueueName, cfg.Prefetch, runGenerate)
			if err != nil {
				startup.LogFatal("Broker connection failed: %v", err)
			}
			defer bridge.Close()
			if err := bridge.Consume(); err != nil {
				startup.LogFatal("Broker consumer failed: %v", err)
			}
			sched = bridge
		default:
			sched = queue.NewManager(cfg.MaxConcurrent, runGenerate)
		}
	}

	var cache *thumbs.Store
	if gen != nil {
		cache = gen.Store()
	}
	hk := hooks.New(sched, cache, db, nil)

	h := handlers.New(db, gen, sched, accounts, hk, cfg.MediaDir, cfg.ThumbnailsEnabled)

	router := mux.NewRouter()
	route := func(name, pattern string, fn http.HandlerFunc, methods ...string) {
		router.Handle(pattern, middlewareChain(name, fn)).Methods(methods...)
	}

	route("thumb", "/thumb", h.RequireAuth(h.ThumbHandler), "POST")
	route("files", "/files/{path:.*}", h.RequireAuth(h.GetFileHandler), "GET", "HEAD")
	route("files", "/files/{path:.*}", h.RequireAuth(h.PutFileHandler), "PUT")
	route("files", "/files/{path:.*}", h.RequireAuth(h.DeleteFileHandler), "DELETE")
	route("quota", "/api/quota", h.RequireAuth(h.QuotaHandler), "GET")
	route("health", "/health", h.HealthHandler, "GET")
	route("health", "/healthz", h.HealthHandler, "GET")
	route("version", "/version", h.VersionHandler, "GET")

	// Metrics are exposed on a separate port so the scrape endpoint is never
	// reachable through the public listener.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}
	go func() {
		logging.Info("Metrics listening on :%s", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		startup.LogServerStarted(cfg.Port, time.Since(start))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startup.LogFatal("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	startup.LogShutdownStep("signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Metrics server shutdown error: %v", err)
	}
	startup.LogShutdownStep("complete")
}

// middlewareChain applies logging and per-route metrics to a handler.
func middlewareChain(route string, fn http.HandlerFunc) http.Handler {
	return middleware.Logging(middleware.Metrics(route, fn))
}

// seedQuotas loads every user's limit from the database and primes their
// reserved bytes from a parallel walk of their storage tree, so enforcement
// starts from actual disk usage rather than zero.
func seedQuotas(db *database.Database, accounts *quota.Accountant, mediaDir string) error {
	users, err := db.ListUsers()
	if err != nil {
		return err
	}

	scanWorkers := workers.ForIO(16)
	for _, u := range users {
		accounts.SetUserLimit(u.Username, u.QuotaLimit)

		used, err := quota.ScanUsage(filepath.Join(mediaDir, u.Username), scanWorkers)
		if err != nil {
			logging.Warn("Usage scan for %s failed: %v", u.Username, err)
			continue
		}
		accounts.SetUserReserved(u.Username, used)
		logging.Info("Quota for %s: used=%d limit=%d", u.Username, used, u.QuotaLimit)
	}
	return nil
}
