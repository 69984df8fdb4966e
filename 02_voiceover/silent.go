package voiceover

import (
	"context"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/media"
	"ai-video-pipeline/types"
)

// Silent renders a fixed-length silent track so the run can still finish
type Silent struct {
	duration float64
	runner   media.Runner
}

func NewSilent(cfg *config.Config, runner media.Runner) *Silent {
	return &Silent{duration: cfg.Voiceover.SilentDurationSec, runner: runner}
}

func (s *Silent) Name() string { return "silent" }

func (s *Silent) Produce(ctx context.Context, req Request) (*types.AudioTrack, error) {
	_, err := s.runner.Run(ctx, "ffmpeg", "-y",
		"-f", "lavfi", "-i", "anullsrc=r=44100:cl=mono",
		"-t", media.Seconds(s.duration),
		"-q:a", "9",
		"-acodec", "libmp3lame",
		req.OutPath,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(s.Name(), err)
	}
	return &types.AudioTrack{Path: req.OutPath, Duration: s.duration}, nil
}
