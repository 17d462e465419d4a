// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	calendarapi "github.com/rezvo/bookinggrid/internal/api/calendar"
	"github.com/rezvo/bookinggrid/internal/bookingapi"
	"github.com/rezvo/bookinggrid/internal/config"
	"github.com/rezvo/bookinggrid/internal/email"
	"github.com/rezvo/bookinggrid/internal/ratelimit"
	"github.com/rezvo/bookinggrid/internal/scheduler"
	"github.com/rezvo/bookinggrid/internal/snapshot"
)

const defaultConfigPath = "config/app.yaml"

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", defaultConfigPath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timezone")
	}

	client, err := bookingapi.New(bookingapi.Options{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Location:          loc,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create booking API client")
	}

	fetcher := snapshot.New(client, snapshot.Options{
		Timeout:       cfg.Refresh.FetchTimeout,
		CacheTTL:      cfg.Refresh.CacheTTL,
		MaxConcurrent: cfg.Refresh.MaxConcurrent,
	})

	deps := calendarapi.Deps{
		Snapshots:     fetcher,
		Bookings:      client,
		Geometry:      cfg.Grid.Geometry(),
		Location:      loc,
		ViewportWidth: cfg.Grid.ViewportWidth,
	}
	if cfg.Email.Enabled {
		ses, err := email.NewSESClient(context.Background(), email.SESOptions{
			Region:          cfg.Email.Region,
			Sender:          cfg.Email.From,
			AccessKeyID:     cfg.Email.AccessKeyID,
			SecretAccessKey: cfg.Email.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create SES client")
		}
		deps.Notifier = email.NewNotifier(ses, cfg.Email.BusinessName, loc)
	}
	handlers, err := calendarapi.NewHandlers(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create calendar handlers")
	}

	limiter := ratelimit.New(&ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		TrustProxy:        cfg.RateLimit.TrustProxy,
	})
	defer limiter.Close()

	var jobs *scheduler.Service
	if cfg.Refresh.Enabled {
		jobs, err = scheduler.New(gocron.WithLocation(loc))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		if _, err := scheduler.RegisterRefreshJob(jobs, cfg.Refresh.Cron, fetcher, cfg.Refresh.FetchTimeout); err != nil {
			log.Fatal().Err(err).Msg("Failed to register calendar refresh job")
		}
		jobs.Start()
	}

	server := newServer(cfg, limiter, handlers)
	shutdownTimeout := time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Int("port", cfg.App.Port).
			Str("timezone", loc.String()).
			Str("booking_api", cfg.API.BaseURL).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if jobs != nil {
			if err := jobs.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
