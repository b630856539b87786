package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/config"
	"github.com/noah-isme/backend-caseshop/internal/notify"
	"github.com/noah-isme/backend-caseshop/internal/obs"
	"github.com/noah-isme/backend-caseshop/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "caseshop"), nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	probe := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(probe); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := probe.Ping(ctx).Err(); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("ping redis")
	}
	cancel()
	defer func() { _ = probe.Close() }()

	var sender notify.Sender
	if cfg.ResendAPIKey != "" {
		sender = notify.ResendSender{
			APIKey: cfg.ResendAPIKey,
			HTTP: &resilience.HTTPClient{
				Client:      &http.Client{},
				Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("resend").WithLogger(logger),
				BaseBackoff: cfg.RetryBase,
				MaxAttempts: cfg.RetryMaxAttempts,
				Timeout:     cfg.OutboundTimeout,
				Target:      "resend",
				Logger:      &logger,
			},
		}
	} else {
		// without an API key mail goes nowhere; keep the worker runnable in dev
		logger.Warn().Msg("resend api key missing, email delivery disabled")
		sender = notify.CommonSender{S: common.NopEmailSender{}}
	}

	worker := notify.Worker{
		Sender:  sender,
		From:    cfg.NotifyEmailFrom,
		Enabled: cfg.NotifyEmailEnabled,
		Logger:  logger,
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: envInt("WORKER_CONCURRENCY", 5),
			Queues:      map[string]int{notify.QueueEmails: 1},
		},
	)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(worker.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
