package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-video-pipeline/pipeline"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const resultsFile = "batch_results.json"

type generator interface {
	Run(ctx context.Context, topic string, rep pipeline.Reporter) (*types.PipelineState, error)
}

type result struct {
	Topic     string  `json:"topic"`
	Status    string  `json:"status"`
	VideoPath string  `json:"video_path,omitempty"`
	Error     string  `json:"error,omitempty"`
	TimeTaken float64 `json:"time_taken"`
}

type summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	TotalTime  float64  `json:"total_time"`
	Results    []result `json:"results"`
}

func (s summary) ok() bool { return s.Failed == 0 }

// runBatch generates one video per topic, in order. A cancelled context stops
// the batch before the next topic.
func runBatch(ctx context.Context, gen generator, topics []string, pause time.Duration, log zerolog.Logger) summary {
	var results []result
	for i, topic := range topics {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(topics)-i).Msg("batch interrupted")
			break
		}

		log.Info().Int("index", i+1).Int("total", len(topics)).Str("topic", topic).Msg("video started")
		results = append(results, runOne(ctx, gen, topic, log))

		if i < len(topics)-1 && pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
	}

	ok := lo.CountBy(results, func(r result) bool { return r.Status == "success" })
	return summary{
		Total:      len(topics),
		Successful: ok,
		Failed:     len(topics) - ok,
		TotalTime:  lo.SumBy(results, func(r result) float64 { return r.TimeTaken }),
		Results:    results,
	}
}

func runOne(ctx context.Context, gen generator, topic string, log zerolog.Logger) result {
	start := time.Now()
	rep := pipeline.ReporterFunc(func(message string, progress int) {
		log.Debug().Str("topic", topic).Int("progress", progress).Msg(message)
	})

	state, err := gen.Run(ctx, topic, rep)
	r := result{Topic: topic, TimeTaken: time.Since(start).Seconds()}
	switch {
	case err != nil:
		r.Status, r.Error = "failed", err.Error()
		log.Error().Err(err).Str("topic", topic).Float64("seconds", r.TimeTaken).Msg("video failed")
	case state == nil || state.Video == nil:
		r.Status, r.Error = "failed", "no video produced"
		log.Error().Str("topic", topic).Msg("video failed")
	default:
		r.Status, r.VideoPath = "success", state.Video.Path
		log.Info().Str("topic", topic).Str("video", r.VideoPath).Float64("seconds", r.TimeTaken).Msg("video completed")
	}
	return r
}

func writeSummary(dir string, s summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	path := filepath.Join(dir, resultsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}
