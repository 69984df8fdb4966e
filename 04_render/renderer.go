package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-video-pipeline/config"
	"ai-video-pipeline/media"
	"ai-video-pipeline/metrics"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoAudioStream   = errors.New("final video has no audio stream")
	ErrNoAudioDuration = errors.New("audio track duration unknown")
)

// Assembler builds the final video from scene clips and the narration track
type Assembler struct {
	cfg    config.RenderConfig
	runner media.Runner
	log    zerolog.Logger
}

// New creates a new Assembler
func New(cfg *config.Config, runner media.Runner, log zerolog.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg.Render,
		runner: runner,
		log:    log.With().Str("component", "render").Logger(),
	}
}

type normalized struct {
	path     string
	duration float64
	ok       bool
}

// Assemble fits each clip to its scene, concatenates the scenes, fits the
// result to the audio duration and muxes the audio in. Intermediates live in
// a work directory that is removed on every exit path; a partial output file
// is removed on failure.
func (a *Assembler) Assemble(ctx context.Context, script *types.Script, audio *types.AudioTrack, visuals []types.VisualClip, outPath string) (video *types.FinalVideo, err error) {
	a.log.Info().Int("scenes", len(script.Scenes)).Int("clips", len(visuals)).Msg("starting final video assembly")

	sc := &scope{}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assembly panicked: %v", r)
		}
		if rerr := sc.release(); rerr != nil {
			a.log.Warn().Err(rerr).Msg("could not release intermediates")
		}
		if err != nil {
			_ = os.Remove(outPath)
			a.log.Error().Err(err).Str("output", outPath).Msg("assembly failed")
		}
	}()

	audioDur, err := a.audioDuration(ctx, audio)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	workDir, err := os.MkdirTemp(filepath.Dir(outPath), ".render-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	sc.track(workDir)

	result := &types.FinalVideo{Path: outPath}

	// Step 1: fit every loadable clip to its scene duration
	scenes, err := a.normalizeScenes(ctx, script, visuals, workDir, sc)
	if err != nil {
		return nil, err
	}
	for i, s := range scenes {
		if !s.ok {
			result.SkippedScenes = append(result.SkippedScenes, i)
		}
	}
	used := lo.Filter(scenes, func(s normalized, _ int) bool { return s.ok })
	result.ScenesUsed = len(used)
	if n := len(result.SkippedScenes); n > 0 {
		metrics.ScenesSkippedTotal.Add(float64(n))
		a.log.Warn().Ints("skipped", result.SkippedScenes).Msg("scenes skipped")
	}

	// Step 2: with nothing loadable, stand in a solid colour clip
	if len(used) == 0 {
		a.log.Warn().Msg("no visual clip could be loaded, using solid colour fallback")
		fb, err := a.fallbackClip(ctx, workDir, sc)
		if err != nil {
			return nil, err
		}
		used = []normalized{fb}
		result.UsedFallback = true
	}

	// Step 3: concatenate in scene order
	concat, total, err := a.concatenate(ctx, used, workDir, sc)
	if err != nil {
		return nil, fmt.Errorf("concatenate scenes: %w", err)
	}
	result.VisualDuration = total

	// Step 4: loop or trim the whole sequence to the audio duration
	plan, err := Fit(total, audioDur)
	if err != nil {
		return nil, err
	}
	result.GlobalLoops = plan.Loops
	fitted, err := a.reconcile(ctx, concat, plan, workDir, sc)
	if err != nil {
		return nil, fmt.Errorf("match video to audio: %w", err)
	}

	// Step 5: attach the audio only after the video length is final
	if err := a.mux(ctx, fitted, audio.Path, audioDur, outPath); err != nil {
		return nil, fmt.Errorf("combine video+audio: %w", err)
	}

	if err := a.verify(ctx, outPath); err != nil {
		return nil, err
	}

	result.Duration = audioDur
	if d, perr := media.ProbeDuration(ctx, a.runner, outPath); perr == nil {
		result.Duration = d
	}

	a.log.Info().
		Str("path", outPath).
		Float64("audio_sec", audioDur).
		Float64("visual_sec", total).
		Int("global_loops", plan.Loops).
		Int("scenes_used", result.ScenesUsed).
		Bool("fallback", result.UsedFallback).
		Msg("final video ready")
	return result, nil
}

func (a *Assembler) audioDuration(ctx context.Context, audio *types.AudioTrack) (float64, error) {
	if audio == nil || audio.Path == "" {
		return 0, errors.New("no audio track")
	}
	if _, err := os.Stat(audio.Path); err != nil {
		return 0, fmt.Errorf("audio track: %w", err)
	}
	if audio.Duration > 0 {
		return audio.Duration, nil
	}
	d, err := media.ProbeDuration(ctx, a.runner, audio.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoAudioDuration, err)
	}
	return d, nil
}

// normalizeScenes runs the per-scene fits concurrently. A scene whose clip is
// missing or fails to load is marked not ok and skipped later.
func (a *Assembler) normalizeScenes(ctx context.Context, script *types.Script, visuals []types.VisualClip, workDir string, sc *scope) ([]normalized, error) {
	byScene := lo.SliceToMap(visuals, func(v types.VisualClip) (int, types.VisualClip) { return v.SceneIndex, v })
	out := make([]normalized, len(script.Scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Workers, 1))

	for i, scene := range script.Scenes {
		clip, ok := byScene[i]
		if !ok || !clip.Usable() {
			a.log.Warn().Int("scene", i).Msg("no clip for scene")
			continue
		}
		g.Go(func() error {
			path, err := a.normalizeOne(gctx, i, scene.Duration, clip.Path, workDir, sc)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.log.Warn().Int("scene", i).Str("clip", clip.Path).Err(err).Msg("could not load scene clip")
				return nil
			}
			out[i] = normalized{path: path, duration: scene.Duration, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) normalizeOne(ctx context.Context, index int, target float64, clipPath, workDir string, sc *scope) (string, error) {
	source, err := media.ProbeDuration(ctx, a.runner, clipPath)
	if err != nil {
		return "", err
	}
	plan, err := Fit(source, target)
	if err != nil {
		return "", err
	}

	outFile := sc.track(filepath.Join(workDir, fmt.Sprintf("scene_%03d.mp4", index)))
	args := append([]string{"-y"}, plan.InputArgs(clipPath)...)
	args = append(args,
		"-vf", a.canvasFilter(),
		"-an",
	)
	args = append(args, a.videoEncodeArgs()...)
	args = append(args, outFile)

	a.log.Debug().Int("scene", index).Float64("clip_sec", source).Float64("scene_sec", target).Int("loops", plan.Loops).Msg("normalizing scene")
	if _, err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return "", err
	}
	return outFile, nil
}

func (a *Assembler) fallbackClip(ctx context.Context, workDir string, sc *scope) (normalized, error) {
	outFile := sc.track(filepath.Join(workDir, "fallback.mp4"))
	args := []string{"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", a.cfg.FallbackColor, a.cfg.Width, a.cfg.Height, a.cfg.FPS),
		"-t", media.Seconds(a.cfg.FallbackDurationSec),
	}
	args = append(args, a.videoEncodeArgs()...)
	args = append(args, outFile)

	if _, err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return normalized{}, fmt.Errorf("render fallback clip: %w", err)
	}
	return normalized{path: outFile, duration: a.cfg.FallbackDurationSec, ok: true}, nil
}

// concatenate joins identically encoded clips with the concat demuxer.
func (a *Assembler) concatenate(ctx context.Context, clips []normalized, workDir string, sc *scope) (string, float64, error) {
	listFile := sc.track(filepath.Join(workDir, "concat.txt"))
	lines := make([]string, 0, len(clips))
	for _, c := range clips {
		abs, err := filepath.Abs(c.path)
		if err != nil {
			return "", 0, err
		}
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return "", 0, err
	}

	outFile := sc.track(filepath.Join(workDir, "concat.mp4"))
	if _, err := a.runner.Run(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	); err != nil {
		return "", 0, err
	}

	total := lo.SumBy(clips, func(c normalized) float64 { return c.duration })
	return outFile, total, nil
}

func (a *Assembler) reconcile(ctx context.Context, concat string, plan FitPlan, workDir string, sc *scope) (string, error) {
	outFile := sc.track(filepath.Join(workDir, "video.mp4"))
	args := append([]string{"-y"}, plan.InputArgs(concat)...)
	args = append(args, "-an")
	args = append(args, a.videoEncodeArgs()...)
	args = append(args, outFile)

	if _, err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return "", err
	}
	return outFile, nil
}

func (a *Assembler) mux(ctx context.Context, video, audio string, duration float64, outPath string) error {
	_, err := a.runner.Run(ctx, "ffmpeg", "-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", a.cfg.AudioCodec,
		"-b:a", a.cfg.AudioBitrate,
		"-t", media.Seconds(duration),
		"-movflags", "+faststart",
		outPath,
	)
	return err
}

// verify requires exactly the streams a playable upload needs.
func (a *Assembler) verify(ctx context.Context, path string) error {
	if _, err := media.StreamCodec(ctx, a.runner, path, "a:0"); err != nil {
		if errors.Is(err, media.ErrNoStream) {
			return ErrNoAudioStream
		}
		return fmt.Errorf("verify audio: %w", err)
	}
	if _, err := media.StreamCodec(ctx, a.runner, path, "v:0"); err != nil {
		return fmt.Errorf("verify video: %w", err)
	}
	return nil
}

func (a *Assembler) canvasFilter() string {
	w, h := a.cfg.Width, a.cfg.Height
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d", w, h, w, h, a.cfg.FPS)
}

func (a *Assembler) videoEncodeArgs() []string {
	return []string{
		"-c:v", a.cfg.VideoCodec,
		"-preset", a.cfg.Preset,
		"-pix_fmt", "yuv420p",
		"-b:v", a.cfg.VideoBitrate,
		"-r", fmt.Sprint(a.cfg.FPS),
	}
}
