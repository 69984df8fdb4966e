package pipeline

import (
	"ai-video-pipeline/01_script"
	"ai-video-pipeline/02_voiceover"
	"ai-video-pipeline/03_visuals"
	"ai-video-pipeline/04_render"
	"ai-video-pipeline/06_upload"
	"ai-video-pipeline/config"
	"ai-video-pipeline/media"

	"github.com/rs/zerolog"
)

// FromConfig wires the production stages around one media runner.
func FromConfig(cfg *config.Config, runner media.Runner, log zerolog.Logger) *Pipeline {
	stages := Stages{
		Script:    script.New(cfg, log),
		Voice:     voiceover.New(cfg, runner, log),
		Visuals:   visuals.New(cfg, runner, log),
		Assembler: render.New(cfg, runner, log),
	}

	switch {
	case !cfg.Upload.Enabled:
	case !cfg.HasYouTubeCredentials():
		log.Warn().Msg("upload enabled but YouTube credentials missing, videos stay local")
	default:
		stages.Uploader = upload.New(cfg, log)
	}

	return New(cfg, stages, log)
}
