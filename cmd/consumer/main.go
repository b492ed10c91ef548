package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/librenews/skywire/common/id"
	"github.com/librenews/skywire/common/logger"
	"github.com/librenews/skywire/common/otel"
	"github.com/librenews/skywire/core/config"
	"github.com/librenews/skywire/core/db"
	"github.com/librenews/skywire/internal/consumer"
	"github.com/librenews/skywire/internal/delivery"
	"github.com/librenews/skywire/internal/http/handler"
	"github.com/librenews/skywire/internal/http/middleware"
	httprouter "github.com/librenews/skywire/internal/http/router"
	"github.com/librenews/skywire/internal/metrics"
	"github.com/librenews/skywire/internal/store"
	"github.com/librenews/skywire/internal/stream"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "skywire track consumer starting",
		"env", cfg.Env,
		"version", cfg.Version,
		"stream", cfg.Stream.Key,
		"consumer_group", cfg.Stream.Group,
		"consumer_name", cfg.Stream.Consumer)

	if err := id.Init(id.ResolveNodeID(cfg.NodeID, cfg.Stream.Consumer)); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Stream.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	// Redis being down is not fatal; the consumer loop backs off and reconnects.
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis not reachable yet", "error", err)
	} else {
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Stream.Key)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	var mailer delivery.Mailer
	if cfg.Mail.Enabled() {
		mailer = delivery.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From, cfg.Mail.ReplyTo,
			delivery.WithMailTimeout(cfg.Mail.Timeout))
		slog.InfoContext(ctx, "sendgrid mailer configured", "from", cfg.Mail.From)
	} else {
		mailer = delivery.NewLogMailer(slog.Default())
		slog.InfoContext(ctx, "no SENDGRID_API_KEY, emails will only be logged")
	}

	poster := delivery.NewHTTPPoster(
		delivery.WithTimeout(cfg.Webhook.Timeout),
		delivery.WithUserAgent("skywire-track/"+cfg.Version),
	)
	dispatcher := delivery.NewDispatcher(mailer, poster, delivery.Config{
		SecretHeader: cfg.Webhook.SecretHeader,
		AppURL:       cfg.Mail.AppURL,
	}, m)

	streamClient := stream.NewClient(redisClient, stream.Config{
		Stream:    cfg.Stream.Key,
		Group:     cfg.Stream.Group,
		Consumer:  cfg.Stream.Consumer,
		BatchSize: cfg.Stream.BatchSize,
		Block:     cfg.Stream.Block,
	})

	c := consumer.New(streamClient, store.NewStores(database.Queries()), dispatcher, m, consumer.Config{
		Stream:           cfg.Stream.Key,
		Group:            cfg.Stream.Group,
		Consumer:         cfg.Stream.Consumer,
		StartDelay:       cfg.Stream.StartDelay,
		ConnBackoff:      cfg.Stream.ConnBackoff,
		ErrorBackoff:     cfg.Stream.ErrorBackoff,
		BacklogEvery:     cfg.Stream.BacklogEvery,
		BacklogThreshold: cfg.Stream.BacklogThreshold,
		ReclaimInterval:  cfg.Stream.ReclaimInterval,
		ReclaimMinIdle:   cfg.Stream.ReclaimMinIdle,
		ReclaimBatchSize: cfg.Stream.ReclaimBatchSize,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ops := handler.NewOpsHandler(map[string]handler.Pinger{
		"redis":    streamClient,
		"postgres": database,
	}, c, cfg.Version)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, ops, registry),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "ops http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop returns once the in-flight batch is done; anything unacked stays pending.
	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		if err := <-errCh; err != nil {
			slog.ErrorContext(shutdownCtx, "consumer error during shutdown", "error", err)
		}
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded waiting for consumer")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, ops *handler.OpsHandler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(httprouter.HealthPath, httprouter.MetricsPath))

	httprouter.SetupRoutes(router, ops, gatherer)

	return router
}

const banner = `
███████╗██╗  ██╗██╗   ██╗██╗    ██╗██╗██████╗ ███████╗
██╔════╝██║ ██╔╝╚██╗ ██╔╝██║    ██║██║██╔══██╗██╔════╝
███████╗█████╔╝  ╚████╔╝ ██║ █╗ ██║██║██████╔╝█████╗
╚════██║██╔═██╗   ╚██╔╝  ██║███╗██║██║██╔══██╗██╔══╝
███████║██║  ██╗   ██║   ╚███╔███╔╝██║██║  ██║███████╗
╚══════╝╚═╝  ╚═╝   ╚═╝    ╚══╝╚══╝ ╚═╝╚═╝  ╚═╝╚══════╝
`
