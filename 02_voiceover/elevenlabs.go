package voiceover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/types"
)

const maxAudioBytes = 50 << 20

// ElevenLabs calls the paid text-to-speech API
type ElevenLabs struct {
	baseURL    string
	apiKey     string
	voiceID    string
	model      string
	stability  float64
	similarity float64
	httpClient *http.Client
}

func NewElevenLabs(cfg *config.Config) *ElevenLabs {
	return &ElevenLabs{
		baseURL:    strings.TrimRight(cfg.Voiceover.ElevenLabsBaseURL, "/"),
		apiKey:     cfg.Env.ElevenLabsAPIKey,
		voiceID:    cfg.Voiceover.ElevenLabsVoiceID,
		model:      cfg.Voiceover.ElevenLabsModel,
		stability:  cfg.Voiceover.Stability,
		similarity: cfg.Voiceover.SimilarityBoost,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Voiceover.TimeoutSec) * time.Second},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (e *ElevenLabs) Produce(ctx context.Context, req Request) (*types.AudioTrack, error) {
	if err := e.speak(ctx, req); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(e.Name(), err)
	}
	return &types.AudioTrack{Path: req.OutPath}, nil
}

func (e *ElevenLabs) speak(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("empty narration")
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: e.model,
		VoiceSettings: voiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.similarity,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, e.voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	f, err := os.Create(req.OutPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxAudioBytes)); err != nil {
		f.Close()
		_ = os.Remove(req.OutPath)
		return fmt.Errorf("write audio: %w", err)
	}
	return f.Close()
}
