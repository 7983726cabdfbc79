// Package embedder turns thought text into fixed-length vectors.
//
// Providers: OpenAI, Jina and Voyage (one shared client for their common
// "/embeddings" API), Ollama (/api/embed) and a local feature-hashing
// embedder that needs no network and is the default.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  embedder.ProviderOpenAI,
//	    APIKey:    os.Getenv(embedder.EnvOpenAIAPIKey),
//	    CacheSize: 10000,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "buy strings for the cello",
//	})
//
// # Dimensions
//
// Each provider advertises a fixed Dimension and rejects any response whose
// vectors have a different length, so stored vectors always match the active
// provider.
//
// # Failures
//
// Provider failures wrap types.ErrEmbeddingUnavailable. Calls are never
// retried: each request makes at most one HTTP call. Remote providers sit
// behind a circuit breaker (github.com/sony/gobreaker) so that an outage
// fails fast instead of waiting on the HTTP timeout for every thought.
//
// # Caching
//
// Embeddings are cached in an LRU keyed by model and SHA-256 content hash.
// Cache reads return copies, so callers may modify the vectors they get.
package embedder
