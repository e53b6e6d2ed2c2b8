package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monghwa-dream-gateway/internal/config"
	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/handlers"
	"monghwa-dream-gateway/internal/httpclient"
	"monghwa-dream-gateway/internal/session"
	"monghwa-dream-gateway/internal/styles"
	"monghwa-dream-gateway/internal/telegram"
	"monghwa-dream-gateway/internal/textgroup"
)

const (
	sessionIdleTTL   = 24 * time.Hour
	sessionPruneTick = time.Hour
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	gem := gemini.New(gemini.Options{
		APIKey:          cfg.GoogleAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		APIVersion:      cfg.GeminiAPIVersion,
		TextModel:       cfg.TextModel,
		ImageModel:      cfg.ImageModel,
		ImageModalities: cfg.ImageResponseModalities,
		HTTPClient:      httpClient,
		Logger:          logger,
	})

	sessions := session.NewStore(session.Options{
		DefaultStyle: styles.Default().Name,
		IdleTTL:      sessionIdleTTL,
	})

	handler := handlers.New(handlers.Options{
		Messenger: tg,
		Dreamer:   gem,
		Sessions:  sessions,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(sessionPruneTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Prune(); n > 0 {
					logger.Debug("sessions pruned", "count", n)
				}
			}
		}
	}()

	sem := make(chan struct{}, cfg.MaxConcurrent)

	if cfg.TextGroupDebounce > 0 {
		onGroupFlush := func(group textgroup.Group) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func() {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleTextGroup(reqCtx, group); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle text group failed", "err", err)
				}
			}()
		}

		aggregator := textgroup.New(textgroup.Options{
			Debounce: cfg.TextGroupDebounce,
			OnFlush:  onGroupFlush,
		})
		handler.SetTextGroupAggregator(aggregator)
	}

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
