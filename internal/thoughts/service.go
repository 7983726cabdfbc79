package thoughts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/categorizer"
	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
	"github.com/dshills/jotdown/internal/indexer"
	"github.com/dshills/jotdown/internal/retrieval"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/pkg/types"
)

// DefaultSnippetCount is the number of recent thoughts shown under a category
const DefaultSnippetCount = 3

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxThoughtLength int      // default types.DefaultMaxThoughtLength
	Threshold        *float64 // categorization floor, nil selects categorizer.DefaultThreshold
	SearchLimit      int      // default retrieval.DefaultLimit
	AnchorCacheSize  int      // default categorizer.DefaultAnchorCacheSize
	Logger           zerolog.Logger
}

// Service is the application layer over storage and the retrieval core.
// It owns categorization on write, the category lifecycle and search.
type Service struct {
	store       storage.Storage
	embedder    embedder.Embedder
	generator   generator.CategoryGenerator
	categorizer *categorizer.Categorizer
	engine      *retrieval.Engine
	indexer     *indexer.Indexer
	maxLength   int
	logger      zerolog.Logger

	// categoryMu serializes category lifecycle writes so "Other" is created once
	categoryMu sync.Mutex
}

// New wires a Service. gen may be nil, in which case category generation and
// answer mode report types.ErrGenerationUnavailable. When gen also implements
// generator.AnswerSynthesizer it serves answer mode.
func New(store storage.Storage, e embedder.Embedder, gen generator.CategoryGenerator, opts Options) *Service {
	maxLength := opts.MaxThoughtLength
	if maxLength <= 0 {
		maxLength = types.DefaultMaxThoughtLength
	}
	cacheSize := opts.AnchorCacheSize
	if cacheSize <= 0 {
		cacheSize = categorizer.DefaultAnchorCacheSize
	}

	anchors := categorizer.NewAnchorCache(e, cacheSize, opts.Logger)
	cat := categorizer.New(e, anchors, categorizer.Options{
		Threshold: opts.Threshold,
		Logger:    opts.Logger,
	})

	var synthesizer generator.AnswerSynthesizer
	if s, ok := gen.(generator.AnswerSynthesizer); ok {
		synthesizer = s
	}

	return &Service{
		store:       store,
		embedder:    e,
		generator:   gen,
		categorizer: cat,
		engine: retrieval.New(e, synthesizer, retrieval.Options{
			DefaultLimit: opts.SearchLimit,
			Logger:       opts.Logger,
		}),
		indexer:   indexer.New(store, e, cat, opts.Logger),
		maxLength: maxLength,
		logger:    opts.Logger,
	}
}

// Categorizer exposes the categorizer, mainly for threshold reporting
func (s *Service) Categorizer() *categorizer.Categorizer {
	return s.categorizer
}

// Embedder returns the embedding provider in use
func (s *Service) Embedder() embedder.Embedder {
	return s.embedder
}

// MaxThoughtLength returns the content limit in runes
func (s *Service) MaxThoughtLength() int {
	return s.maxLength
}

// Status summarizes stored data
func (s *Service) Status(ctx context.Context) (*types.Status, error) {
	status, err := s.store.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return status, nil
}

// Reindex re-embeds thoughts whose vectors do not match the current provider
func (s *Service) Reindex(ctx context.Context, config *indexer.Config) (*indexer.Statistics, error) {
	return s.indexer.Reindex(ctx, config)
}

// isNotFound reports a storage miss
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
