package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/rs/zerolog"

	"hesapla/backend/internal/cache"
	"hesapla/backend/internal/config"
	"hesapla/backend/internal/httpapi"
	"hesapla/backend/internal/repricing"
	"hesapla/backend/internal/service"
	"hesapla/backend/internal/store"
	"hesapla/backend/internal/store/memory"
	pgstore "hesapla/backend/internal/store/postgres"
)

func main() {
	bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}

	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(mainCtx, 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(startCtx, cfg.DatabaseURL, cfg.ConnectTries, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info().Str("repository", "postgres").Msg("repository ready")
	} else {
		repo = memory.NewSeeded(logger)
		logger.Info().Str("repository", "memory").Msg("repository ready")
	}

	simulationCache := cache.SimulationCache(cache.NoopSimulationCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSimulationCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		retry := retrier.New(retrier.ConstantBackoff(cfg.ConnectTries, time.Second), nil)
		if err := retry.RunCtx(startCtx, redisCache.Ping); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			simulationCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info().Str("cache", "redis").Msg("cache ready")
		}
	} else {
		logger.Info().Str("cache", "noop").Msg("cache ready")
	}

	projections := repricing.NewEngine(simulationCache, cfg.SimulationCacheTTL(), logger)
	svc := service.New(repo, projections, cfg.StoreID, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), cfg.ManagerPIN, repo, logger)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("pricing backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-mainCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

// newLogger builds the process logger. format "console" gives human
// readable output; anything else is JSON.
func newLogger(out io.Writer, level string, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true, "696969": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return fmt.Errorf("PIN must be digits only")
		}
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
