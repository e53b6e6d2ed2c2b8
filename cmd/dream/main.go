package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"monghwa-dream-gateway/internal/cli"
	"monghwa-dream-gateway/internal/config"
	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/httpclient"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.Options{NewDreamer: newDreamer})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newDreamer() (cli.Dreamer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	return gemini.New(gemini.Options{
		APIKey:          cfg.GoogleAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		APIVersion:      cfg.GeminiAPIVersion,
		TextModel:       cfg.TextModel,
		ImageModel:      cfg.ImageModel,
		ImageModalities: cfg.ImageResponseModalities,
		HTTPClient:      httpClient,
		Logger:          logger,
	}), nil
}
