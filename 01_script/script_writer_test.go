package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-video-pipeline/config"
)

func groqServer(t *testing.T, status int, content string) (*httptest.Server, *int) {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		var req groqRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Photosynthesis")

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Script.BaseURL = baseURL
	cfg.Env.GroqAPIKey = "gsk_test"
	return cfg
}

func TestGenerateUsesGroq(t *testing.T) {
	content := "```json\n" + `{"title":"Plants Eat Light","script":"Leaves catch light. Sugar is made.","scenes":[{"duration":8,"description":"green leaves","text":"Leaves catch light."},{"duration":7,"description":"sugar","text":"Sugar is made."}]}` + "\n```"
	srv, calls := groqServer(t, http.StatusOK, content)

	s := New(testConfig(srv.URL), zerolog.Nop()).Generate(context.Background(), "Photosynthesis")

	assert.Equal(t, 1, *calls)
	assert.Equal(t, "Plants Eat Light", s.Title)
	require.Len(t, s.Scenes, 2)
	assert.Equal(t, 8.0, s.Scenes[0].Duration)
	assert.Equal(t, "green leaves", s.Scenes[0].Description)
	assert.InDelta(t, 15.0, s.TotalDuration(), 1e-9)
}

func TestGenerateFallsBackOnInvalidScript(t *testing.T) {
	cases := map[string]string{
		"not json":       "this is not json",
		"no scenes":      `{"title":"t","script":"s","scenes":[]}`,
		"zero duration":  `{"title":"t","script":"s","scenes":[{"duration":0,"description":"d","text":"x"}]}`,
		"missing title":  `{"script":"s","scenes":[{"duration":5,"description":"d","text":"x"}]}`,
		"empty text":     `{"title":"t","script":"s","scenes":[{"duration":5,"description":"d","text":" "}]}`,
		"negative scene": `{"title":"t","script":"s","scenes":[{"duration":-3,"description":"d","text":"x"}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := groqServer(t, http.StatusOK, content)
			s := New(testConfig(srv.URL), zerolog.Nop()).Generate(context.Background(), "Photosynthesis")
			assert.Equal(t, Fallback("Photosynthesis"), s)
		})
	}
}

func TestGenerateFallsBackOnHTTPError(t *testing.T) {
	srv, calls := groqServer(t, http.StatusInternalServerError, `{}`)
	s := New(testConfig(srv.URL), zerolog.Nop()).Generate(context.Background(), "Photosynthesis")
	assert.Equal(t, 1, *calls)
	assert.Len(t, s.Scenes, 3)
}

func TestGenerateFallsBackWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := New(testConfig(url), zerolog.Nop()).Generate(context.Background(), "Photosynthesis")
	assert.Equal(t, "Understanding Photosynthesis", s.Title)
}

func TestGenerateWithoutKeyNeverCallsGroq(t *testing.T) {
	srv, calls := groqServer(t, http.StatusOK, `{}`)
	cfg := testConfig(srv.URL)
	cfg.Env.GroqAPIKey = ""

	s := New(cfg, zerolog.Nop()).Generate(context.Background(), "Photosynthesis")
	assert.Zero(t, *calls)
	assert.Len(t, s.Scenes, 3)
}

func TestGenerateWithCancelledContextStillReturnsScript(t *testing.T) {
	srv, _ := groqServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(testConfig(srv.URL), zerolog.Nop()).Generate(ctx, "Photosynthesis")
	assert.Len(t, s.Scenes, 3)
}

func TestFallbackShape(t *testing.T) {
	s := Fallback("  Photosynthesis ")
	require.Len(t, s.Scenes, 3)
	for _, sc := range s.Scenes {
		assert.Equal(t, 10.0, sc.Duration)
		assert.Contains(t, sc.Description, "Photosynthesis")
		assert.NotEmpty(t, sc.Text)
	}
	assert.InDelta(t, 30.0, s.TotalDuration(), 1e-9)
	assert.Contains(t, s.Script, s.Scenes[0].Text)
	assert.Contains(t, s.Script, s.Scenes[2].Text)
	assert.NoError(t, Validate(s))
}

func TestFallbackTitleCasesTopic(t *testing.T) {
	assert.Equal(t, "Understanding How Tides Work", Fallback("how tides work").Title)
	assert.Equal(t, "Understanding NASA Missions", Fallback("NASA missions").Title)
}

func TestValidateFillsNarration(t *testing.T) {
	sc := Fallback("Tides")
	sc.Script = ""
	require.NoError(t, Validate(sc))
	assert.Contains(t, sc.Script, "Welcome to our video about Tides.")
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("  {\"a\":1} "))
}
