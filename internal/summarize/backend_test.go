// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-insights/pkg/types"
)

func TestOllamaBackend_Generate(t *testing.T) {
	var got ollamaRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":"analyst","response":"  {\"task\":\"fix lag\"}\n","done":true}`)
	}))
	defer ts.Close()

	b := &OllamaBackend{Endpoint: ts.URL + "/", Model: "analyst", Client: ts.Client()}
	out, err := b.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, `{"task":"fix lag"}`, out)
	assert.Equal(t, "analyst", got.Model)
	assert.Equal(t, "prompt text", got.Prompt)
	assert.False(t, got.Stream)
}

func TestOllamaBackend_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'analyst' not found"}`)
	}))
	defer ts.Close()

	b := &OllamaBackend{Endpoint: ts.URL, Model: "analyst", Client: ts.Client()}
	_, err := b.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "not found")
}

type mockExecutor struct {
	name  string
	args  []string
	stdin string
	out   string
	err   error
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	m.name, m.args = name, args
	b, _ := io.ReadAll(stdin)
	m.stdin = string(b)
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(stdout, m.out)
	return err
}

func TestOllamaCLIBackend_Generate(t *testing.T) {
	ex := &mockExecutor{out: "{\"task\":\"None\"}\n"}
	b := &OllamaCLIBackend{Model: "analyst", exec: ex}

	out, err := b.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"task":"None"}`, out)
	assert.Equal(t, "ollama", ex.name)
	assert.Equal(t, []string{"run", "analyst"}, ex.args)
	assert.Equal(t, "the prompt", ex.stdin)
}

func TestOllamaCLIBackend_Failure(t *testing.T) {
	b := &OllamaCLIBackend{Model: "analyst", Bin: "/opt/ollama", exec: &mockExecutor{err: errors.New("exit status 1")}}
	_, err := b.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/opt/ollama run analyst")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClaudeBackend_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		fmt.Fprint(w, `{"content":[{"type":"thinking","text":"hmm"},{"type":"text","text":"{\"task\":\"x\"}"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	b := &ClaudeBackend{APIKey: "secret", Model: "m", Client: ts.Client()}
	out, err := b.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"task":"x"}`, out)
}

func TestClaudeBackend_NoText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	_, err := (&ClaudeBackend{Client: ts.Client()}).Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	b, err := NewBackend(ctx, types.AIConfig{}, nil)
	require.NoError(t, err)
	require.IsType(t, &OllamaBackend{}, b)
	assert.Equal(t, "analyst", b.(*OllamaBackend).Model)

	b, err = NewBackend(ctx, types.AIConfig{Backend: BackendOllamaCLI, Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "llama3", b.(*OllamaCLIBackend).Model)

	b, err = NewBackend(ctx, types.AIConfig{Backend: BackendClaude, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultClaudeModel, b.(*ClaudeBackend).Model)

	_, err = NewBackend(ctx, types.AIConfig{Backend: BackendClaude}, nil)
	assert.Error(t, err)
	_, err = NewBackend(ctx, types.AIConfig{Backend: BackendGemini}, nil)
	assert.Error(t, err)
	_, err = NewBackend(ctx, types.AIConfig{Backend: "openai"}, nil)
	assert.ErrorContains(t, err, "unknown backend")
}
