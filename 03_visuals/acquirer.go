package visuals

import (
	"context"
	"fmt"
	"path/filepath"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/media"
	"ai-video-pipeline/metrics"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Job is one scene to find a clip for.
type Job struct {
	Index   int
	Scene   types.Scene
	OutPath string
}

// Acquirer coordinates visual acquisition for every scene of a script
type Acquirer struct {
	cfg   *config.Config
	log   zerolog.Logger
	chain *fallback.Chain[Job, *types.VisualClip]
}

// New builds the tier order: Pexels (when keyed), captioned placeholder, plain placeholder.
func New(cfg *config.Config, runner media.Runner, log zerolog.Logger) *Acquirer {
	a := &Acquirer{cfg: cfg, log: log.With().Str("component", "visuals").Logger()}

	var producers []fallback.Producer[Job, *types.VisualClip]
	if cfg.Env.PexelsAPIKey != "" {
		producers = append(producers, NewPexels(cfg))
	} else {
		a.log.Warn().Msg("PEXELS_API_KEY not set, using placeholder clips")
	}
	producers = append(producers,
		NewPlaceholder(cfg, runner, true),
		NewPlaceholder(cfg, runner, false),
	)

	a.chain = fallback.NewChain(producers...)
	a.chain.OnFallback = func(provider string, err error) {
		metrics.FallbacksTotal.WithLabelValues("visuals", provider).Inc()
		a.log.Warn().Str("provider", provider).Err(err).Msg("visual provider failed, falling back")
	}
	return a
}

// Fetch returns exactly one clip per scene, in scene order. It never fails:
// a scene whose every tier failed gets a clip marked unavailable.
func (a *Acquirer) Fetch(ctx context.Context, script *types.Script, dir string) []types.VisualClip {
	a.log.Info().Int("scenes", len(script.Scenes)).Msg("fetching visuals")

	clips := make([]types.VisualClip, len(script.Scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Visuals.Workers)

	for i, scene := range script.Scenes {
		g.Go(func() error {
			job := Job{
				Index:   i,
				Scene:   scene,
				OutPath: filepath.Join(dir, fmt.Sprintf("visual_%03d.mp4", i)),
			}
			clips[i] = a.fetchOne(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range clips {
		a.log.Info().Int("scene", c.SceneIndex).Str("source", c.Source).Str("path", c.Path).Msg("visual ready")
	}
	return clips
}

func (a *Acquirer) fetchOne(ctx context.Context, job Job) types.VisualClip {
	clip, _, err := a.chain.Run(ctx, job)
	if err != nil {
		a.log.Error().Int("scene", job.Index).Err(err).Msg("no visual for scene")
		return types.VisualClip{SceneIndex: job.Index, Source: types.SourceUnavailable}
	}
	clip.SceneIndex = job.Index
	return *clip
}
