package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clariox/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	for _, mode := range []Mode{ModeSummary, ModeGrammar, ModeImprove, ModeConversational} {
		p, err := SystemPrompt(mode)
		require.NoError(t, err)
		assert.NotEmpty(t, p)
	}
	_, err := SystemPrompt("poem")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestGroqGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Short version.  "}}]}`))
	}))
	defer server.Close()

	g := NewGroqGenerator(GroqConfig{APIKey: "key", BaseURL: server.URL + "/"})
	out, err := g.Generate(context.Background(), "A long text.", ModeSummary)

	require.NoError(t, err)
	assert.Equal(t, "Short version.", out)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "A long text.", got.Messages[1].Content)
	assert.InDelta(t, 0.6, got.Temperature, 1e-9)
}

func TestGroqGenerateErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGroqGenerator(GroqConfig{APIKey: "key", BaseURL: server.URL})

	_, err := g.Generate(context.Background(), "text", ModeGrammar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = g.Generate(context.Background(), "   ", ModeGrammar)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = g.Generate(context.Background(), "text", "poem")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = NewGroqGenerator(GroqConfig{}).Generate(context.Background(), "text", ModeGrammar)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	g, err := New(context.Background(), config.AIConfig{Provider: "groq"})
	require.NoError(t, err)
	assert.IsType(t, &GroqGenerator{}, g)

	_, err = New(context.Background(), config.AIConfig{Provider: "gemini"})
	assert.Error(t, err, "gemini without a key must fail")

	_, err = New(context.Background(), config.AIConfig{Provider: "other"})
	assert.Error(t, err)
}

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) Generate(_ context.Context, text string, mode Mode) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if _, err := SystemPrompt(mode); err != nil {
		return "", err
	}
	return s.out, s.err
}

func TestHandler(t *testing.T) {
	cases := []struct {
		name   string
		gen    stubGenerator
		body   string
		status int
	}{
		{"ok", stubGenerator{out: "done"}, `{"text":"hello","type":"improve"}`, http.StatusOK},
		{"default mode", stubGenerator{out: "done"}, `{"text":"hello"}`, http.StatusOK},
		{"empty", stubGenerator{}, `{"text":" ","type":"summary"}`, http.StatusBadRequest},
		{"bad mode", stubGenerator{}, `{"text":"hi","type":"poem"}`, http.StatusBadRequest},
		{"bad json", stubGenerator{}, `{`, http.StatusBadRequest},
		{"provider down", stubGenerator{err: errors.New("boom")}, `{"text":"hi","type":"summary"}`, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/ai/generate", strings.NewReader(tc.body))
			NewHandler(tc.gen).Generate(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"result":"done"}`, rec.Body.String())
			}
		})
	}
}
