package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"paygate/internal/config"
	"paygate/internal/dispatch"
	"paygate/internal/health"
	"paygate/internal/leader"
	"paygate/internal/processor"
	"paygate/internal/queue"
	"paygate/internal/store"
	"paygate/internal/summary"
	"paygate/internal/transport"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	settings, err := config.Load()
	if err != nil {
		slog.Error("Config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis failed", "err", err)
		os.Exit(1)
	}

	st, closeStore, err := buildStore(ctx, settings, rdb)
	if err != nil {
		slog.Error("Store init failed", "backend", settings.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	workQueue := queue.NewRedisQueue(rdb)

	client := processor.NewClient(
		settings.DefaultProcessorURL,
		settings.FallbackProcessorURL,
		processor.WithSendTimeout(settings.DispatchTimeout),
		processor.WithProbeTimeout(settings.ProbeTimeout),
	)

	elector := leader.New(leader.NewRedisKV(rdb), settings.LeaderTTL)
	routingState := health.NewState(rdb, settings.ProbeInterval/5)
	monitor := health.NewMonitor(client, elector, routingState, settings.ProbeInterval, settings.LatencyMultiplier)
	go monitor.Run(ctx)

	dispatcher := dispatch.New(workQueue, st, client, routingState, dispatch.Config{
		BatchSize:    settings.BatchSize,
		IdleInterval: settings.IdleInterval,
	})
	go dispatcher.Run(ctx)

	summarySvc := summary.New(st)
	handler := transport.NewHandler(workQueue, st, summarySvc, client, dispatcher, settings.AdminToken)

	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})
	handler.Register(app)

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully")
		_ = app.Shutdown()
	}()

	slog.Info("Gateway running", "port", settings.Port, "instance", elector.InstanceID(), "store", settings.StoreBackend)
	if err := app.Listen(":" + settings.Port); err != nil {
		slog.Error("Server failed", "err", err)
	}
}

func buildStore(ctx context.Context, settings *config.Settings, rdb *redis.Client) (store.Store, func(), error) {
	switch settings.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, settings.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "sqlite":
		sq, err := store.OpenSQLite(settings.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sq, func() { _ = sq.Close() }, nil
	default:
		return store.NewRedisStore(rdb), func() {}, nil
	}
}
