package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker placed in front of a remote provider
type BreakerConfig struct {
	MaxRequests  uint32        // Probes allowed while half-open
	Interval     time.Duration // Window after which closed-state counts reset
	Timeout      time.Duration // How long the breaker stays open
	MinRequests  uint32        // Requests observed before the ratio is considered
	FailureRatio float64
}

// DefaultBreakerConfig returns the breaker settings used for remote providers
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// BreakerEmbedder fails fast with ErrProviderFailed while the wrapped provider keeps failing.
// It never re-issues a call: an open breaker rejects without touching the network.
type BreakerEmbedder struct {
	Embedder
	cb     *gobreaker.CircuitBreaker
	logger zerolog.Logger
}

// WithBreaker wraps e in a circuit breaker
func WithBreaker(e Embedder, cfg BreakerConfig, logger zerolog.Logger) *BreakerEmbedder {
	defaults := DefaultBreakerConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = defaults.MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = defaults.FailureRatio
	}

	b := &BreakerEmbedder{Embedder: e, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedder-" + e.Provider(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("embedding circuit breaker state change")
		},
		IsSuccessful: countsAsSuccess,
	})
	return b
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the breaker
func countsAsSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, context.Canceled)
}

func (b *BreakerEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Embedder.GenerateEmbedding(ctx, req)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.(*Embedding), nil
}

func (b *BreakerEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Embedder.GenerateBatch(ctx, req)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.(*BatchEmbeddingResponse), nil
}

// State reports the breaker state ("closed", "half-open" or "open")
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

func (b *BreakerEmbedder) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrProviderFailed, b.Provider(), err)
	}
	return err
}
