package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/jotdown/pkg/types"
)

const (
	// ProviderOllama selects a local Ollama server
	ProviderOllama = "ollama"

	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
)

// OllamaProvider generates with a local Ollama server via /api/generate (non-streaming)
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an Ollama generator
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *OllamaProvider) GenerateCategories(ctx context.Context, profile string) ([]types.Category, error) {
	resp, err := o.generate(ctx, buildCategoryPrompt(profile), "json")
	if err != nil {
		return nil, err
	}
	return parseCategories(resp)
}

func (o *OllamaProvider) SynthesizeAnswer(ctx context.Context, query string, candidates []types.Thought) (string, error) {
	resp, err := o.generate(ctx, buildAnswerPrompt(query, candidates), "")
	if err != nil {
		return "", err
	}
	return cleanAnswer(resp)
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func (o *OllamaProvider) generate(ctx context.Context, prompt, format string) (string, error) {
	jsonData, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Format: format,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling ollama: %v", ErrProviderFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama returned status %d", ErrProviderFailed, resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrProviderFailed, err)
	}

	return genResp.Response, nil
}
