// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/review-insights/internal/httputil"
	"github.com/pdiddy/review-insights/pkg/types"
)

// Backend abstracts the language model so tests can supply a mock. Generate
// returns the raw completion for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Backend names accepted by NewBackend.
const (
	BackendOllama    = "ollama"
	BackendOllamaCLI = "ollama-cli"
	BackendClaude    = "claude"
	BackendGemini    = "gemini"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultLocalModel     = "analyst"
	defaultClaudeModel    = "claude-sonnet-4-5"
	defaultGeminiModel    = "gemini-2.5-flash"
)

// NewBackend builds the backend selected by cfg.Backend (default ollama).
func NewBackend(ctx context.Context, cfg types.AIConfig, log *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", BackendOllama:
		return &OllamaBackend{
			Endpoint: cfg.Endpoint,
			Model:    orDefault(cfg.Model, defaultLocalModel),
			Log:      log,
		}, nil
	case BackendOllamaCLI:
		return &OllamaCLIBackend{Model: orDefault(cfg.Model, defaultLocalModel)}, nil
	case BackendClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend requires an API key")
		}
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: orDefault(cfg.Model, defaultClaudeModel)}, nil
	case BackendGemini:
		return NewGeminiBackend(ctx, cfg.APIKey, orDefault(cfg.Model, defaultGeminiModel))
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s, %s or %s)",
			cfg.Backend, BackendOllama, BackendOllamaCLI, BackendClaude, BackendGemini)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// OllamaBackend calls a local Ollama server's /api/generate endpoint with
// streaming disabled.
type OllamaBackend struct {
	Endpoint string
	Model    string
	Client   *http.Client
	Log      *zap.Logger
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends one non-streaming generate request.
func (o *OllamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := strings.TrimRight(orDefault(o.Endpoint, defaultOllamaEndpoint), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	// One transport-level retry; callWithRetry owns the outer backoff.
	resp, err := httputil.DoWithRetry(ctx, client, req, 1, o.Log)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}

// executor abstracts command execution for testing.
type executor interface {
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osExecutor struct{}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// OllamaCLIBackend runs `ollama run <model>` with the prompt on stdin. The
// process is killed when ctx is done.
type OllamaCLIBackend struct {
	Model string
	Bin   string // default "ollama"

	exec executor
}

// Generate runs one model invocation and returns its trimmed stdout.
func (o *OllamaCLIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	ex := o.exec
	if ex == nil {
		ex = osExecutor{}
	}
	bin := orDefault(o.Bin, "ollama")

	var out bytes.Buffer
	if err := ex.RunPiped(ctx, bin, []string{"run", o.Model}, strings.NewReader(prompt), &out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("running %s run %s: %w", bin, o.Model, err)
	}
	return strings.TrimSpace(strings.ToValidUTF8(out.String(), "�")), nil
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate sends the prompt as a single user message and returns the
// first text block.
func (c *ClaudeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: 1024,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(b))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}

// GeminiBackend calls Gemini through the Google GenAI SDK.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini client for model.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini backend requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Generate sends the prompt as a single user turn.
func (g *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
