package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/jotdown/pkg/types"
)

// Common errors
var (
	ErrNoProviderEnabled = errors.New("no generation provider configured")
	ErrUnsupported       = errors.New("unsupported provider")

	// ErrProviderFailed wraps types.ErrGenerationUnavailable so callers can branch on the domain sentinel
	ErrProviderFailed = fmt.Errorf("generation provider failed: %w", types.ErrGenerationUnavailable)
)

// CategoryGenerator derives a candidate category set from a free-text profile
type CategoryGenerator interface {
	// GenerateCategories returns active categories with names and descriptions.
	// Failures wrap types.ErrGenerationUnavailable.
	GenerateCategories(ctx context.Context, profile string) ([]types.Category, error)
}

// AnswerSynthesizer writes a prose answer to query from candidate thoughts
type AnswerSynthesizer interface {
	// SynthesizeAnswer failures wrap types.ErrGenerationUnavailable
	SynthesizeAnswer(ctx context.Context, query string, candidates []types.Thought) (string, error)
}

// Generator is a backend that serves both generative contracts
type Generator interface {
	CategoryGenerator
	AnswerSynthesizer

	// Provider returns the provider name
	Provider() string

	// Close releases any resources held by the generator
	Close() error
}
