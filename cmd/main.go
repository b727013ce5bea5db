package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
	"wschat/internal/api"
	"wschat/internal/cache"
	"wschat/internal/chat"
	"wschat/internal/config"
	"wschat/internal/subscriber"
	"wschat/internal/ws"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &loggerOpts)
	logger := slog.New(jsonHandler)

	var (
		presence    chat.Presence
		redisClient *redis.Client
	)
	if conf.RedisEnabled() {
		redisClient = redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}()

		redisPresence := cache.NewRedisPresence(redisClient, conf.PresenceKey())
		resetCtx, resetCancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisPresence.Reset(resetCtx)
		resetCancel()
		if err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}
		presence = redisPresence
	}

	router := chat.NewRouter(logger, chat.NewRegistry(), presence)
	wsManager := ws.NewManager(ctx, logger, router, ws.Options{
		ReadLimit:   conf.ReadLimit,
		IdleTimeout: conf.IdleTimeout,
	})
	server := api.NewServer(conf, wsManager, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if redisClient != nil {
		sub := subscriber.NewSubscriber(logger, redisClient, conf.RedisAnnounceChannel, router, conf.AnnouncerID)
		g.Go(func() error {
			if err := sub.Start(gctx); err != nil {
				return fmt.Errorf("subscriber stopped: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
