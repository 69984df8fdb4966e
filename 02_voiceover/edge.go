package voiceover

import (
	"context"
	"errors"
	"strings"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/media"
	"ai-video-pipeline/types"
)

// EdgeTTS shells out to the free edge-tts command line tool
type EdgeTTS struct {
	binary string
	voice  string
	runner media.Runner
}

func NewEdgeTTS(cfg *config.Config, runner media.Runner) *EdgeTTS {
	return &EdgeTTS{binary: cfg.Voiceover.EdgeBinary, voice: cfg.Voiceover.EdgeVoice, runner: runner}
}

func (e *EdgeTTS) Name() string { return "edge-tts" }

func (e *EdgeTTS) Produce(ctx context.Context, req Request) (*types.AudioTrack, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fallback.Wrap(e.Name(), errors.New("empty narration"))
	}
	_, err := e.runner.Run(ctx, e.binary,
		"--voice", e.voice,
		"--text", req.Text,
		"--write-media", req.OutPath,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(e.Name(), err)
	}
	return &types.AudioTrack{Path: req.OutPath}, nil
}
