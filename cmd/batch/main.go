package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/logging"
	"ai-video-pipeline/media"
	"ai-video-pipeline/pipeline"
	"ai-video-pipeline/topics"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to config.yaml")
	file := flag.String("file", "", "file with one topic per line, or a YAML list")
	subreddit := flag.String("reddit", "", "take topics from hot posts of this subreddit")
	limit := flag.Int("limit", 5, "number of reddit topics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	base := logging.New(cfg.Env.AppEnv, cfg.Env.LogLevel)
	logger := logging.Component(base, "batch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fromFile, fromReddit []string
	if *file != "" {
		if fromFile, err = topics.FromFile(*file); err != nil {
			logger.Error().Err(err).Msg("read topic file")
			return 1
		}
	}
	if *subreddit != "" {
		rd, err := topics.NewReddit(cfg.Batch.RedditUserAgent, base)
		if err == nil {
			fromReddit, err = rd.Hot(ctx, *subreddit, *limit)
		}
		if err != nil {
			logger.Error().Err(err).Msg("reddit topics")
			return 1
		}
	}

	list, err := topics.Resolve(topics.FromArgs(flag.Args()), fromFile, fromReddit, cfg.Batch.DefaultTopics)
	if err != nil {
		logger.Error().Err(err).Msg("nothing to generate")
		return 1
	}
	logger.Info().Int("count", len(list)).Strs("topics", list).Msg("batch started")

	runner := media.NewExecRunner(base)
	if missing := media.CheckTools(ctx, runner, "ffmpeg", "ffprobe"); len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("media tools not found, rendering will fail")
	}

	p := pipeline.FromConfig(cfg, runner, base)
	sum := runBatch(ctx, p, list, time.Duration(cfg.Batch.PauseSec)*time.Second, logger)

	avg := 0.0
	if len(sum.Results) > 0 {
		avg = sum.TotalTime / float64(len(sum.Results))
	}
	logger.Info().
		Int("successful", sum.Successful).
		Int("failed", sum.Failed).
		Float64("total_seconds", sum.TotalTime).
		Float64("avg_seconds", avg).
		Msg("batch finished")

	if path, err := writeSummary(cfg.Paths.Output, sum); err != nil {
		logger.Error().Err(err).Msg("save batch results")
	} else {
		logger.Info().Str("path", path).Msg("batch results saved")
	}

	if !sum.ok() {
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
