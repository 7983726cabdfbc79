package categorizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/vectorindex"
	"github.com/dshills/jotdown/pkg/types"
)

// DefaultThreshold is the minimum similarity a category must reach to be assigned
const DefaultThreshold = 0.30

// Fallback reasons
const (
	ReasonNoCategories   = "no active categories"
	ReasonBelowThreshold = "best similarity below threshold"
)

// Assignment is the outcome of Categorize
type Assignment struct {
	// Category is the chosen category. On fallback it is the "Other" category
	// when one was supplied, otherwise nil and the caller must resolve "Other".
	Category *types.Category
	Score    float64
	Fallback bool
	Reason   string // Set on fallback
}

// Options configures a Categorizer
type Options struct {
	// Threshold is the similarity floor; nil selects DefaultThreshold.
	// Use a negative value to accept any best match.
	Threshold *float64
	Logger    zerolog.Logger
}

// Categorizer assigns thoughts to the active category whose anchor is most similar.
// Given the same vector and anchors it always returns the same category; ties go to
// the category that comes first in the supplied order.
type Categorizer struct {
	embedder  embedder.Embedder
	anchors   *AnchorCache
	threshold float64
	logger    zerolog.Logger
}

// New creates a Categorizer
func New(e embedder.Embedder, anchors *AnchorCache, opts Options) *Categorizer {
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	return &Categorizer{
		embedder:  e,
		anchors:   anchors,
		threshold: threshold,
		logger:    opts.Logger,
	}
}

// Threshold returns the similarity floor in use
func (c *Categorizer) Threshold() float64 {
	return c.threshold
}

// Anchors returns the anchor cache so callers can invalidate on description changes
func (c *Categorizer) Anchors() *AnchorCache {
	return c.anchors
}

// Categorize picks the best category for text. vector may be nil, in which case text is
// embedded first; an embedding failure returns an error wrapping types.ErrEmbeddingUnavailable.
// Archived categories and "Other" are never scored.
func (c *Categorizer) Categorize(ctx context.Context, text string, vector []float32, categories []types.Category) (*Assignment, error) {
	other, _ := findOther(categories)

	eligible := make([]types.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.IsActive && !cat.IsOther() {
			eligible = append(eligible, cat)
		}
	}
	if len(eligible) == 0 {
		return c.fallback(other, 0, ReasonNoCategories), nil
	}

	if vector == nil {
		emb, err := c.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("categorize: %w", wrapUnavailable(err))
		}
		vector = emb.Vector
	}

	entries := make([]vectorindex.Entry, 0, len(eligible))
	byID := make(map[string]*types.Category, len(eligible))
	var lastErr error
	for i := range eligible {
		cat := &eligible[i]
		anchorVec, err := c.anchors.Vector(ctx, *cat)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).Str("category", cat.Name).Msg("anchor unavailable, category skipped")
			continue
		}
		key := anchorKey(*cat)
		entries = append(entries, vectorindex.Entry{ID: key, Vector: anchorVec})
		byID[key] = cat
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("categorize: no anchors available: %w", wrapUnavailable(lastErr))
	}

	ranking, err := vectorindex.Rank(vector, entries, 1)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}
	for _, s := range ranking.Skipped {
		c.logger.Warn().
			Str("category", byID[s.ID].Name).
			Int("anchor_dimension", s.Dimension).
			Int("vector_dimension", len(vector)).
			Msg("anchor dimension mismatch, category skipped")
	}
	if len(ranking.Results) == 0 {
		return nil, fmt.Errorf("categorize: no comparable anchors: %w", types.ErrDimensionMismatch)
	}

	best := ranking.Results[0]
	if best.Score < c.threshold {
		return c.fallback(other, best.Score, ReasonBelowThreshold), nil
	}

	chosen := *byID[best.ID]
	return &Assignment{Category: &chosen, Score: best.Score}, nil
}

func (c *Categorizer) fallback(other *types.Category, score float64, reason string) *Assignment {
	c.logger.Info().
		Str("reason", reason).
		Float64("best_score", score).
		Float64("threshold", c.threshold).
		Msg("categorized as Other")
	return &Assignment{Category: other, Score: score, Fallback: true, Reason: reason}
}

func findOther(categories []types.Category) (*types.Category, bool) {
	for i := range categories {
		if categories[i].IsOther() {
			other := categories[i]
			return &other, true
		}
	}
	return nil, false
}

func wrapUnavailable(err error) error {
	if err == nil {
		return types.ErrEmbeddingUnavailable
	}
	if errors.Is(err, types.ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
}
