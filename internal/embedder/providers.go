package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Provider names
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderVoyage = "voyage"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultVoyageModel = "voyage-3-lite"
	DefaultOllamaModel = "nomic-embed-text"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	VoyageDimension = 512
	OllamaDimension = 768
	LocalDimension  = 384

	// Endpoints
	JinaEndpoint      = "https://api.jina.ai/v1/embeddings"
	OpenAIEndpoint    = "https://api.openai.com/v1/embeddings"
	VoyageEndpoint    = "https://api.voyageai.com/v1/embeddings"
	DefaultOllamaHost = "http://localhost:11434"

	// Batch limits
	MaxBatchSize = 100

	// DefaultTimeout bounds a single provider HTTP call
	DefaultTimeout = 30 * time.Second
)

// RemoteProvider implements Embedder against the "/embeddings" API shape shared by
// OpenAI, Jina and Voyage: {"input": [...], "model": "..."} -> {"data": [{"embedding", "index"}]}.
// Each request performs exactly one HTTP call; failures are returned, never retried.
type RemoteProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	inputType  string // Voyage only
	httpClient *http.Client
	cache      *Cache
}

// RemoteConfig describes one remote embeddings endpoint
type RemoteConfig struct {
	Name      string
	Endpoint  string
	APIKey    string
	Model     string
	Dimension int
	InputType string
	Timeout   time.Duration
}

// NewRemoteProvider creates an embedder for an OpenAI-compatible endpoint
func NewRemoteProvider(cfg RemoteConfig, cache *Cache) (*RemoteProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key not set", ErrNoProviderEnabled, cfg.Name)
	}
	if cfg.Endpoint == "" || cfg.Model == "" || cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: %s endpoint, model and dimension are required", ErrInvalidInput, cfg.Name)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &RemoteProvider{
		name:      cfg.Name,
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		inputType: cfg.InputType,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}, nil
}

// NewOpenAIProvider creates an OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return NewRemoteProvider(RemoteConfig{
		Name:      ProviderOpenAI,
		Endpoint:  OpenAIEndpoint,
		APIKey:    apiKey,
		Model:     DefaultOpenAIModel,
		Dimension: OpenAIDimension,
	}, cache)
}

// NewJinaProvider creates a Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return NewRemoteProvider(RemoteConfig{
		Name:      ProviderJina,
		Endpoint:  JinaEndpoint,
		APIKey:    apiKey,
		Model:     DefaultJinaModel,
		Dimension: JinaDimension,
	}, cache)
}

// NewVoyageProvider creates a Voyage AI embedder
func NewVoyageProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return NewRemoteProvider(RemoteConfig{
		Name:      ProviderVoyage,
		Endpoint:  VoyageEndpoint,
		APIKey:    apiKey,
		Model:     DefaultVoyageModel,
		Dimension: VoyageDimension,
		InputType: "document",
	}, cache)
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	// Only texts missing from the cache go over the wire
	embeddings := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if p.cache != nil {
			if emb, ok := p.cache.Get(cacheKey(model, text)); ok {
				embeddings[i] = emb
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fetched, err := p.callAPI(ctx, missing, model)
		if err != nil {
			return nil, err
		}
		for j, emb := range fetched {
			i := missingIdx[j]
			emb.Hash = ComputeHash(req.Texts[i])
			embeddings[i] = emb
			if p.cache != nil {
				p.cache.Set(cacheKey(model, req.Texts[i]), emb)
			}
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

type remoteRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type remoteResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(remoteRequest{
		Input:     texts,
		Model:     model,
		InputType: p.inputType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s call: %v", ErrProviderFailed, p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s api error %d: %s", ErrProviderFailed, p.name, resp.StatusCode, string(bodyBytes))
	}

	var apiResp remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrProviderFailed, p.name, err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts", ErrProviderFailed, p.name, len(apiResp.Data), len(texts))
	}

	// Responses carry an index; order by it rather than trusting array order
	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	if apiResp.Model != "" {
		model = apiResp.Model
	}
	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		if err := checkDimension(p.name, data.Embedding, p.dimension); err != nil {
			return nil, err
		}
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     model,
		}
	}

	return embeddings, nil
}

func (p *RemoteProvider) Dimension() int {
	return p.dimension
}

func (p *RemoteProvider) Provider() string {
	return p.name
}

func (p *RemoteProvider) Model() string {
	return p.model
}

func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
