package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookathing/internal/api"
	"bookathing/internal/config"
	"bookathing/internal/database"
	"bookathing/internal/events"
	"bookathing/internal/metrics"
	"bookathing/internal/notify"
	"bookathing/internal/ratelimit"
	"bookathing/internal/repository"
	"bookathing/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BOOKATHING_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("open storage error")
	}
	defer store.Close()
	logger.Info().Str("backend", store.Name()).Bool("fallback", cfg.Storage.Fallback).Msg("Booking store ready")

	registry := config.NewRegistry(nil)
	if cfg.Calendars.Path != "" {
		if err := config.WatchCalendars(ctx, cfg.Calendars.Path, cfg.CalendarsReloadInterval(), &logger, registry.Update); err != nil {
			logger.Fatal().Err(err).Msg("failed to load calendars")
		}
	}

	bus := events.NewEventBus(&logger)
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		metrics.IncBookingCreated(e.Booking.CalendarID)
		return nil
	})
	bus.Subscribe(events.BookingDeleted, func(e events.Event) error {
		metrics.IncBookingDeleted(e.Booking.CalendarID)
		return nil
	})

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		local := ratelimit.NewLocalLimiter(cfg.RateLimit.Requests, cfg.RateLimitWindow())
		limiter = local
		if rdb != nil {
			limiter = ratelimit.NewFallbackLimiter(
				ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimitWindow()), local, &logger)
		}
	}

	if cfg.Backup.Enabled && cfg.DataFile() != "" {
		var opts []database.BackupOption
		if cfg.Storage.Backend == config.BackendSQLite {
			opts = append(opts, database.WithSQLiteSource())
		}
		backup := database.NewBackupService(cfg.DataFile(), cfg.Backup, &logger, opts...)
		go backup.Start(ctx)
	}

	bookings := service.NewBookingService(store, registry, bus, service.Options{
		EnforceOverlap: cfg.Booking.EnforceOverlap,
	}, &logger)

	if cfg.Telegram.BotToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifications disabled")
		} else {
			// Deliver off the request path.
			async := func(e events.Event) error {
				go func() {
					if err := notifier.HandleEvent(e); err != nil {
						logger.Error().Err(err).Str("event", e.Type).Msg("telegram notification failed")
					}
				}()
				return nil
			}
			bus.Subscribe(events.BookingCreated, async)
			bus.Subscribe(events.BookingDeleted, async)

			if cfg.Telegram.DigestHour >= 0 {
				go notify.NewDigest(bookings, notifier, cfg.Telegram.DigestHour, &logger).Start(ctx)
			}
		}
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, store, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(bookings, api.Options{
		Address:        cfg.Server.Address,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PingMessage:    cfg.Server.PingMessage,
		Calendars:      registry,
		Limiter:        limiter,
	}, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api shutdown error")
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("Server stopped")
}

func startHealthServer(ctx context.Context, port int, store repository.BookingStore, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := store.Ping(ctxPing); err != nil {
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
