package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solvebox/internal/common/cache"
	commonmw "solvebox/internal/common/http/middleware"
	"solvebox/internal/judge/evaluator"
	problemrepo "solvebox/internal/problem/repository"
	progressrepo "solvebox/internal/progress/repository"
	"solvebox/internal/server/controller"
	"solvebox/internal/server/metrics"
	"solvebox/internal/server/service"
	"solvebox/pkg/utils/logger"
	"solvebox/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/server.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	addr := flag.String("addr", "", "Override listen address")
	problemsDir := flag.String("problems", "", "Override problems directory")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath, *configPath != defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		appCfg.Server.Addr = *addr
	}
	if *problemsDir != "" {
		appCfg.Problems.Dir = *problemsDir
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	var redisCache *cache.RedisCache
	if appCfg.Redis.Addr != "" {
		var err error
		redisCache, err = cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
	}

	problems, err := problemrepo.NewFSProblemRepository(ctx, appCfg.Problems.Dir, appCfg.Problems.ReloadOnRead)
	if err != nil {
		return fmt.Errorf("load problems failed: %w", err)
	}

	progress, err := newProgressRepository(appCfg.Progress, redisCache)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewMetrics(registry)

	executor, err := evaluator.NewProcessExecutor(appCfg.Evaluator.Interpreter, appCfg.Evaluator.TempDir, appCfg.Evaluator.MaxOutputBytes)
	if err != nil {
		return fmt.Errorf("init executor failed: %w", err)
	}
	eval, err := evaluator.New(evaluator.Config{
		Executor:     evaluator.NewLimitedExecutor(executor, appCfg.Evaluator.MaxConcurrent),
		CaseTimeout:  appCfg.Evaluator.CaseTimeout,
		MaxCodeBytes: appCfg.Evaluator.MaxCodeBytes,
		Observer:     serverMetrics,
	})
	if err != nil {
		return fmt.Errorf("init evaluator failed: %w", err)
	}

	runService, err := service.NewRunService(service.RunConfig{
		Problems:        problems,
		Evaluator:       eval,
		Progress:        progress,
		Observer:        serverMetrics,
		ProgressTimeout: appCfg.Progress.Timeout,
	})
	if err != nil {
		return err
	}
	problemService, err := service.NewProblemService(problems, progress)
	if err != nil {
		return err
	}

	var limiter commonmw.Limiter
	if redisCache != nil && appCfg.RateLimit.Enabled() {
		limiter = service.NewRateLimitService(redisCache, appCfg.RateLimit.Policy.Window, appCfg.RateLimit.RedisTimeout)
	}
	checks := map[string]controller.HealthCheck{}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}

	httpServer := buildHTTPServer(appCfg, routes{
		run:     controller.NewRunController(runService),
		problem: controller.NewProblemController(problemService),
		health:  controller.NewHealthController(checks),
		metrics: serverMetrics,
		limiter: limiter,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "evaluation server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("problems", appCfg.Problems.Dir),
			zap.String("progress_backend", appCfg.Progress.Backend),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	ctxShutdown, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func newProgressRepository(cfg ProgressConfig, redisCache *cache.RedisCache) (progressrepo.ProgressRepository, error) {
	if cfg.Backend == progressBackendRedis {
		if redisCache == nil {
			return nil, fmt.Errorf("redis progress backend needs a redis connection")
		}
		return progressrepo.NewRedisProgressRepository(redisCache, cfg.Key)
	}
	return progressrepo.NewFileProgressRepository(cfg.Path), nil
}

type routes struct {
	run     *controller.RunController
	problem *controller.ProblemController
	health  *controller.HealthController
	metrics *metrics.Metrics
	limiter commonmw.Limiter
}

func buildHTTPServer(cfg *AppConfig, r routes) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.CORSMiddleware(cfg.CORS))
	router.Use(r.metrics.Middleware())
	router.Use(requestLogger())

	router.POST("/run", commonmw.RateLimitMiddleware(r.limiter, "run", cfg.RateLimit.Policy), r.run.Run)

	api := router.Group("/api")
	api.GET("/problems", r.problem.Index)
	api.GET("/problems/:id", r.problem.Get)
	api.GET("/progress", r.problem.Progress)

	router.GET("/healthz", r.health.Check)
	router.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
