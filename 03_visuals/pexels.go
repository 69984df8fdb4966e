package visuals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/types"

	"github.com/samber/lo"
)

// Pexels searches the Pexels stock video library and downloads the first
// file that meets the quality bar
type Pexels struct {
	baseURL   string
	apiKey    string
	perPage   int
	minWidth  int
	qualities []string
	maxBytes  int64

	httpClient *http.Client
}

func NewPexels(cfg *config.Config) *Pexels {
	return &Pexels{
		baseURL:    strings.TrimRight(cfg.Visuals.PexelsBaseURL, "/"),
		apiKey:     cfg.Env.PexelsAPIKey,
		perPage:    cfg.Visuals.PerPage,
		minWidth:   cfg.Visuals.MinWidth,
		qualities:  cfg.Visuals.Qualities,
		maxBytes:   cfg.Visuals.MaxDownloadMB << 20,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Visuals.TimeoutSec) * time.Second},
	}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsSearch struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int          `json:"id"`
	Duration   float64      `json:"duration"`
	VideoFiles []pexelsFile `json:"video_files"`
}

type pexelsFile struct {
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Link    string `json:"link"`
}

func (p *Pexels) Produce(ctx context.Context, job Job) (*types.VisualClip, error) {
	clip, err := p.fetch(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(p.Name(), err)
	}
	return clip, nil
}

func (p *Pexels) fetch(ctx context.Context, job Job) (*types.VisualClip, error) {
	query := strings.TrimSpace(job.Scene.Description)
	if query == "" {
		query = strings.TrimSpace(job.Scene.Text)
	}
	if query == "" {
		return nil, errors.New("empty search query")
	}

	videos, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}

	video, file, ok := p.pick(videos)
	if !ok {
		return nil, fmt.Errorf("no %s file at least %dpx wide for %q", strings.Join(p.qualities, "/"), p.minWidth, query)
	}

	if err := p.download(ctx, file.Link, job.OutPath); err != nil {
		return nil, err
	}
	return &types.VisualClip{Path: job.OutPath, Source: types.SourcePexels, Duration: video.Duration}, nil
}

func (p *Pexels) search(ctx context.Context, query string) ([]pexelsVideo, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(p.perPage))
	params.Set("size", "medium")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("pexels search: HTTP %d", resp.StatusCode)
	}

	var result pexelsSearch
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode pexels search: %w", err)
	}
	if len(result.Videos) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}
	return result.Videos, nil
}

// pick returns the first file, in result order, with an accepted quality and enough width.
func (p *Pexels) pick(videos []pexelsVideo) (pexelsVideo, pexelsFile, bool) {
	for _, v := range videos {
		f, ok := lo.Find(v.VideoFiles, func(f pexelsFile) bool {
			return f.Link != "" && f.Width >= p.minWidth && lo.Contains(p.qualities, f.Quality)
		})
		if ok {
			return v, f, true
		}
	}
	return pexelsVideo{}, pexelsFile{}, false
}

func (p *Pexels) download(ctx context.Context, link, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("download clip: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, p.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		err = fmt.Errorf("download clip: %w", err)
	case n > p.maxBytes:
		err = fmt.Errorf("download clip: larger than %d bytes", p.maxBytes)
	case n == 0:
		err = errors.New("download clip: empty body")
	}
	if err != nil {
		_ = os.Remove(outPath)
	}
	return err
}
