package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrNoCredentials is returned when any of the YouTube secrets is missing.
var ErrNoCredentials = errors.New("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg     *config.Config
	log     zerolog.Logger
	service func(ctx context.Context) (*youtube.Service, error)
}

// New creates a new Uploader
func New(cfg *config.Config, log zerolog.Logger) *Uploader {
	u := &Uploader{cfg: cfg, log: log.With().Str("component", "upload").Logger()}
	u.service = u.oauthService
	return u
}

// Upload sends the final video with its metadata and returns the new video ID and URL.
func (u *Uploader) Upload(ctx context.Context, videoFile string, meta *types.VideoMetadata) (*types.UploadResult, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.log.Info().Str("title", meta.Title).Float64("size_mb", float64(fi.Size())/1024/1024).Msg("uploading")
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, buildVideo(u.cfg.Upload, meta)).
		NotifySubscribers(u.cfg.Upload.NotifySubscribers).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	res := &types.UploadResult{
		VideoID: uploaded.Id,
		URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
	}
	u.log.Info().Str("video_id", res.VideoID).Str("url", res.URL).Msg("uploaded")
	return res, nil
}

func buildVideo(cfg config.UploadConfig, meta *types.VideoMetadata) *youtube.Video {
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      cfg.DefaultLanguage,
			DefaultAudioLanguage: cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           cfg.Visibility,
			SelfDeclaredMadeForKids: cfg.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

func (u *Uploader) oauthService(ctx context.Context) (*youtube.Service, error) {
	client, err := u.oauthClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// oauthClient exchanges the stored refresh token for an authorised HTTP client.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	env := u.cfg.Env
	if !u.cfg.HasYouTubeCredentials() {
		return nil, ErrNoCredentials
	}

	conf := &oauth2.Config{
		ClientID:     env.YouTubeClientID,
		ClientSecret: env.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: env.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token), nil
}
