package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-video-pipeline/config"
	"ai-video-pipeline/fallback"
	"ai-video-pipeline/metrics"
	"ai-video-pipeline/types"

	"github.com/rs/zerolog"
)

const systemPrompt = "You are a professional YouTube script writer. Always respond with valid JSON."

const userPromptTemplate = `Create a 45-60 second video script about: %s

Return ONLY a JSON object with this exact structure:
{
  "title": "Catchy video title",
  "script": "The full narration, read continuously from start to finish",
  "scenes": [
    {"duration": 8, "description": "Short visual search phrase for stock footage", "text": "Narration for this scene"},
    {"duration": 8, "description": "Short visual search phrase for stock footage", "text": "Narration for this scene"}
  ]
}

Total duration should be 45-60 seconds. Include 5-8 scenes of 6-10 seconds each.
The "script" field must be the scene texts joined in order.`

// Writer generates scripts using Groq, falling back to a local template
type Writer struct {
	cfg   *config.Config
	log   zerolog.Logger
	chain *fallback.Chain[string, *types.Script]
}

// New creates a new script Writer. Without a Groq key the template is the only provider.
func New(cfg *config.Config, log zerolog.Logger) *Writer {
	log = log.With().Str("component", "script").Logger()

	var producers []fallback.Producer[string, *types.Script]
	if cfg.Env.GroqAPIKey != "" {
		producers = append(producers, NewGroq(cfg))
	} else {
		log.Warn().Msg("GROQ_API_KEY not set, using template scripts")
	}
	producers = append(producers, Template{})

	w := &Writer{cfg: cfg, log: log, chain: fallback.NewChain(producers...)}
	w.chain.OnFallback = func(provider string, err error) {
		metrics.FallbacksTotal.WithLabelValues("script", provider).Inc()
		w.log.Warn().Str("provider", provider).Err(err).Msg("script provider failed, falling back")
	}
	return w
}

// Generate always returns a usable script: provider failures end in the template.
func (w *Writer) Generate(ctx context.Context, topic string) *types.Script {
	w.log.Info().Str("topic", topic).Msg("generating script")

	s, provider, err := w.chain.Run(ctx, topic)
	if err != nil {
		w.log.Warn().Err(err).Msg("script chain aborted, using template")
		s = Fallback(topic)
		provider = "template"
	}

	w.log.Info().
		Str("provider", provider).
		Str("title", s.Title).
		Int("scenes", len(s.Scenes)).
		Float64("total_sec", s.TotalDuration()).
		Msg("script ready")
	return s
}

// Groq asks an OpenAI-compatible chat completion endpoint for a script
type Groq struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewGroq(cfg *config.Config) *Groq {
	return &Groq{
		baseURL:     strings.TrimRight(cfg.Script.BaseURL, "/"),
		apiKey:      cfg.Env.GroqAPIKey,
		model:       cfg.Script.GroqModel,
		temperature: cfg.Script.Temperature,
		maxTokens:   cfg.Script.MaxTokens,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.Script.TimeoutSec) * time.Second},
	}
}

func (g *Groq) Name() string { return "groq" }

type groqRequest struct {
	Model          string          `json:"model"`
	Messages       []groqMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Produce returns a validated script. Every failure is a provider error.
func (g *Groq) Produce(ctx context.Context, topic string) (*types.Script, error) {
	s, err := g.request(ctx, topic)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fallback.Wrap(g.Name(), err)
	}
	return s, nil
}

func (g *Groq) request(ctx context.Context, topic string) (*types.Script, error) {
	reqBody := groqRequest{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, topic)},
		},
		Temperature:    g.temperature,
		MaxTokens:      g.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		return nil, fmt.Errorf("parse groq response (status %d): %w", resp.StatusCode, err)
	}
	if groqResp.Error != nil {
		return nil, fmt.Errorf("groq error: %s", groqResp.Error.Message)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("groq status %d", resp.StatusCode)
	}
	if len(groqResp.Choices) == 0 {
		return nil, fmt.Errorf("groq returned no choices")
	}

	content := cleanJSON(groqResp.Choices[0].Message.Content)

	var s types.Script
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w (raw: %s)", err, truncate(content, 200))
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the shape the rest of the pipeline relies on.
func Validate(s *types.Script) error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("script has no title")
	}
	if len(s.Scenes) == 0 {
		return errors.New("script has no scenes")
	}
	for i, sc := range s.Scenes {
		if sc.Duration <= 0 {
			return fmt.Errorf("scene %d: duration must be positive, got %v", i, sc.Duration)
		}
		if strings.TrimSpace(sc.Text) == "" {
			return fmt.Errorf("scene %d: empty text", i)
		}
	}
	if strings.TrimSpace(s.Script) == "" {
		texts := make([]string, len(s.Scenes))
		for i, sc := range s.Scenes {
			texts[i] = strings.TrimSpace(sc.Text)
		}
		s.Script = strings.Join(texts, " ")
	}
	return nil
}

// cleanJSON strips markdown fences if the model wraps its response in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
