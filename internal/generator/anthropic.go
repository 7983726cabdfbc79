package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dshills/jotdown/pkg/types"
)

const (
	// ProviderAnthropic selects the Anthropic messages API
	ProviderAnthropic = "anthropic"

	AnthropicEndpoint     = "https://api.anthropic.com/v1/messages"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicVersion      = "2023-06-01"
)

// AnthropicProvider generates categories and answers with the Anthropic Messages API.
// Each call makes exactly one HTTP request.
type AnthropicProvider struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicProvider creates an Anthropic generator. An empty model selects DefaultAnthropicModel.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAnthropicAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: AnthropicEndpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (a *AnthropicProvider) GenerateCategories(ctx context.Context, profile string) ([]types.Category, error) {
	resp, err := a.callAPI(ctx, buildCategoryPrompt(profile), 1024)
	if err != nil {
		return nil, err
	}
	return parseCategories(resp)
}

func (a *AnthropicProvider) SynthesizeAnswer(ctx context.Context, query string, candidates []types.Thought) (string, error) {
	resp, err := a.callAPI(ctx, buildAnswerPrompt(query, candidates), 512)
	if err != nil {
		return "", err
	}
	return cleanAnswer(resp)
}

func (a *AnthropicProvider) Provider() string {
	return ProviderAnthropic
}

func (a *AnthropicProvider) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *AnthropicProvider) callAPI(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic request: %v", ErrProviderFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrProviderFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic api error (status %d): %s", ErrProviderFailed, resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrProviderFailed, err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("%w: anthropic api error: %s", ErrProviderFailed, apiResp.Error.Message)
	}

	for _, c := range apiResp.Content {
		if c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("%w: empty response", ErrProviderFailed)
}
