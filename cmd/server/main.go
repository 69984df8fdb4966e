package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/jobs"
	"ai-video-pipeline/logging"
	"ai-video-pipeline/media"
	"ai-video-pipeline/pipeline"
	"ai-video-pipeline/server"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.Env.AppEnv, cfg.Env.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := media.NewExecRunner(logger)
	if missing := media.CheckTools(ctx, runner, "ffmpeg", "ffprobe"); len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("media tools not found, rendering will fail")
	}

	p := pipeline.FromConfig(cfg, runner, logger)
	srv := server.New(jobs.NewTracker(), p, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("output", cfg.Paths.Output).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := srv.Drain(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("generation job still running at exit")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
