// Command server runs the guardian access gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	accessservice "wardgate/internal/access/service"
	"wardgate/internal/audit"
	"wardgate/internal/platform/config"
	"wardgate/internal/platform/logger"
	platformredis "wardgate/internal/platform/redis"
	"wardgate/internal/platform/worker"
	"wardgate/internal/privacy"
	ratelimitservice "wardgate/internal/ratelimit/service"
	ratelimitstore "wardgate/internal/ratelimit/store"
	relservice "wardgate/internal/relationship/service"
	relstore "wardgate/internal/relationship/store"
	tokenservice "wardgate/internal/token/service"
	tokenstore "wardgate/internal/token/store"
	transport "wardgate/internal/transport/http"
)

func main() {
	log := logger.New()

	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	hasher, err := audit.NewHasher(cfg.HashSecret)
	if err != nil {
		return err
	}
	classifier := privacy.NewClassifier(hasher.HashContent)

	jsonlSink, auditFile, err := audit.OpenJSONLFile(cfg.AuditLogPath)
	if err != nil {
		return err
	}
	defer auditFile.Close()

	sinks := []audit.Sink{jsonlSink}
	if cfg.KafkaBrokers != "" {
		kafkaSink, err := audit.NewKafkaSink(audit.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaAuditTopic,
		})
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka audit sink enabled", "topic", cfg.KafkaAuditTopic)
	}

	publisher := audit.NewPublisher(sinks,
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log))
	defer publisher.Close()

	recorder := audit.NewRecorder(publisher, hasher, classifier, log)

	redisClient, err := platformredis.New(cfg)
	if err != nil {
		return err
	}

	var (
		tokenStore     tokenservice.Store
		ratelimitStore ratelimitservice.Store
		health         transport.HealthChecker
	)
	if redisClient != nil {
		defer redisClient.Close()
		tokenStore = tokenstore.NewRedisStore(redisClient.Client)
		ratelimitStore = ratelimitstore.NewRedisStore(redisClient.Client)
		health = redisClient
		log.Info("using shared redis stores")
	} else {
		tokenStore = tokenstore.New()
		ratelimitStore = ratelimitstore.New()
		log.Info("using in-process stores")
	}

	relationships, err := relservice.New(relstore.New(), recorder, relservice.WithLogger(log))
	if err != nil {
		return err
	}
	tokens, err := tokenservice.New(tokenStore, recorder, cfg.HashSecret,
		tokenservice.WithLogger(log))
	if err != nil {
		return err
	}
	limiter, err := ratelimitservice.New(ratelimitStore, recorder,
		ratelimitservice.WithLogger(log))
	if err != nil {
		return err
	}
	verifier, err := accessservice.New(relationships, tokens, limiter, recorder,
		accessservice.WithLogger(log),
		accessservice.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}

	handler, err := transport.NewHandler(verifier, relationships, limiter, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.NewRouter(handler, log, health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	cleanup := worker.NewCleanup(cfg.CleanupInterval, log,
		worker.Task{Name: "expired_tokens", Run: tokens.DeleteExpired},
		worker.Task{Name: "ratelimit_windows", Run: limiter.Prune},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := cleanup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if redisClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
