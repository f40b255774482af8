package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/md-rashed-zaman/slotboard/libs/config"
	"github.com/md-rashed-zaman/slotboard/libs/db"
	"github.com/md-rashed-zaman/slotboard/libs/httpx"
	"github.com/md-rashed-zaman/slotboard/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotboard/libs/otel"
	"github.com/md-rashed-zaman/slotboard/libs/runtime"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9095")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	clock, err := civil.Load(config.String("TIMEZONE", "UTC"))
	if err != nil {
		panic(err)
	}
	horizonRaw, err := config.RequiredString("HORIZON_END")
	if err != nil {
		panic(err)
	}
	horizonEnd, err := parseHorizon(clock, horizonRaw)
	if err != nil {
		panic(err)
	}

	var pool *db.Pool
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		slow, err := config.Duration("DB_SLOW_QUERY", 250*time.Millisecond)
		if err != nil {
			panic(err)
		}
		pool, err = db.Open(ctx, dbURL, db.PoolConfig{SlowQuery: slow, Logger: logger})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
	}

	types, err := loadSessionTypes(config.String("SESSION_TYPES_FILE", ""), pool)
	if err != nil {
		panic(err)
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer func() { _ = rdb.Close() }()
	}

	source, err := busySource(logger, pool)
	if err != nil {
		panic(err)
	}
	readyChecks := []runtime.ReadyCheck{}
	if pool != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	var cache *busy.CachedSource
	if rdb != nil {
		ttl, err := config.Duration("BUSY_CACHE_TTL", 5*time.Minute)
		if err != nil {
			panic(err)
		}
		cache = busy.NewCachedSource(source, rdb, ttl, "", logger)
		source = cache
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck()})
	}

	brokers := config.List("KAFKA_BROKERS", nil)
	if len(brokers) > 0 && cache != nil {
		var dedupe consumer.Deduper
		if pool != nil {
			dedupe = inbox.NewRepository(pool)
		}
		eventConsumer := consumer.New(logger, dedupe, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topics:  config.List("KAFKA_CONSUME_TOPICS", []string{consumer.TopicBooked, consumer.TopicCancelled}),
		}, consumer.InvalidateOnBooking(cache, logger))
		go eventConsumer.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	svc := availability.NewService(clock, source, types, horizonEnd, logger)
	slotsHandler := handlers.NewSlotsHandler(svc, logger)
	logger.Info("availability configured",
		"timezone", clock.Location().String(),
		"horizon_end", horizonEnd.Format(time.RFC3339),
	)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/public/slots", slotsHandler.Slots)
	mux.HandleFunc("/api/v1/public/session-types", slotsHandler.SessionTypes)

	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		panic(err)
	}
	var rateLimit httpx.Middleware
	if rdb != nil {
		rateLimit = httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "").Middleware(logger, true)
	} else {
		rateLimit = httpx.NewRateLimiter(limit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", nil),
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit,
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		panic(err)
	}
	startGrpcServer(ctx, logger, service, lis)

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// parseHorizon resolves HORIZON_END (YYYY-MM-DD) to civil midnight in the configured zone.
func parseHorizon(clock *civil.Clock, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("HORIZON_END is required")
	}
	at, err := clock.Horizon(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("HORIZON_END: %w", err)
	}
	return at, nil
}

// loadSessionTypes prefers the catalog file and falls back to the session_types table.
func loadSessionTypes(path string, pool *db.Pool) (sessiontype.Provider, error) {
	if path != "" {
		return sessiontype.LoadFile(path)
	}
	if pool != nil {
		return sessiontype.NewRepository(pool), nil
	}
	return nil, errors.New("SESSION_TYPES_FILE or DATABASE_URL is required")
}

// busySource combines the external feed and booked appointments, whichever are configured.
func busySource(logger *slog.Logger, pool *db.Pool) (busy.Source, error) {
	var sources busy.Multi
	if feedURL := config.String("BUSY_FEED_URL", ""); feedURL != "" {
		timeout, err := config.Duration("BUSY_FEED_TIMEOUT", 10*time.Second)
		if err != nil {
			return nil, err
		}
		sources = append(sources, busy.NewFeedSource(feedURL, timeout))
	}
	if pool != nil {
		sources = append(sources, busy.NewPostgresSource(pool))
	}
	if len(sources) == 0 {
		logger.Warn("no busy source configured; every window is treated as free")
		return busy.Static{}, nil
	}
	return sources, nil
}
