package voiceover

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/media"
	"ai-video-pipeline/metrics"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
)

// Request is the narration to speak and where to write it.
type Request struct {
	Text    string
	OutPath string
}

// Synthesizer turns the whole narration into one audio track
type Synthesizer struct {
	cfg    *config.Config
	log    zerolog.Logger
	runner media.Runner
	chain  *fallback.Chain[Request, *types.AudioTrack]
}

// New wires the provider order: ElevenLabs (when keyed), edge-tts, then silence.
func New(cfg *config.Config, runner media.Runner, log zerolog.Logger) *Synthesizer {
	s := &Synthesizer{
		cfg:    cfg,
		log:    log.With().Str("component", "voiceover").Logger(),
		runner: runner,
	}

	var producers []fallback.Producer[Request, *types.AudioTrack]
	if cfg.Env.ElevenLabsAPIKey != "" {
		producers = append(producers, s.verified(NewElevenLabs(cfg), 0))
	}
	producers = append(producers,
		s.verified(NewEdgeTTS(cfg, runner), 0),
		s.verified(NewSilent(cfg, runner), cfg.Voiceover.SilentDurationSec),
	)

	s.chain = fallback.NewChain(producers...)
	s.chain.OnFallback = func(provider string, err error) {
		metrics.FallbacksTotal.WithLabelValues("voiceover", provider).Inc()
		s.log.Warn().Str("provider", provider).Err(err).Msg("voiceover provider failed, falling back")
	}
	return s
}

// Providers lists the tiers in the order they are tried.
func (s *Synthesizer) Providers() []string { return s.chain.Names() }

// Synthesize speaks the full narration, not per scene, into outPath.
func (s *Synthesizer) Synthesize(ctx context.Context, script *types.Script, outPath string) (*types.AudioTrack, error) {
	text := strings.TrimSpace(script.Script)
	if text == "" {
		parts := make([]string, 0, len(script.Scenes))
		for _, sc := range script.Scenes {
			parts = append(parts, strings.TrimSpace(sc.Text))
		}
		text = strings.Join(parts, " ")
	}
	s.log.Info().Int("chars", len(text)).Msg("generating voiceover")

	track, provider, err := s.chain.Run(ctx, Request{Text: text, OutPath: outPath})
	if err != nil {
		return nil, fmt.Errorf("voiceover: %w", err)
	}
	track.Provider = provider

	s.log.Info().
		Str("provider", provider).
		Int64("bytes", track.Bytes).
		Float64("duration_sec", track.Duration).
		Str("path", track.Path).
		Msg("voiceover ready")
	return track, nil
}

// verified rejects artifacts that are too small or cannot be probed. A
// positive knownDuration is used when probing fails.
func (s *Synthesizer) verified(p fallback.Producer[Request, *types.AudioTrack], knownDuration float64) fallback.Producer[Request, *types.AudioTrack] {
	return fallback.Func[Request, *types.AudioTrack]{
		ProviderName: p.Name(),
		Fn: func(ctx context.Context, req Request) (*types.AudioTrack, error) {
			track, err := p.Produce(ctx, req)
			if err != nil {
				return nil, err
			}

			info, err := os.Stat(track.Path)
			if err != nil {
				return nil, fallback.Errorf(p.Name(), "audio file was not created: %v", err)
			}
			if info.Size() < s.cfg.Voiceover.MinBytes {
				_ = os.Remove(track.Path)
				return nil, fallback.Errorf(p.Name(), "audio file too small: %d bytes", info.Size())
			}
			track.Bytes = info.Size()

			dur, err := media.ProbeDuration(ctx, s.runner, track.Path)
			switch {
			case err == nil:
				track.Duration = dur
			case knownDuration > 0:
				s.log.Warn().Err(err).Float64("duration_sec", knownDuration).Msg("could not probe audio, using known duration")
				track.Duration = knownDuration
			default:
				_ = os.Remove(track.Path)
				return nil, fallback.Wrap(p.Name(), err)
			}
			return track, nil
		},
	}
}
