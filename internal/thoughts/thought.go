package thoughts

import (
	"context"
	"fmt"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/pkg/types"
)

// ListOptions filters ListThoughts
type ListOptions struct {
	Category string // Category name, case-insensitive; empty lists all
	Limit    int    // <= 0 lists all
}

// CreateThought validates, embeds, categorizes and stores content.
// An embedding outage never blocks the write: the thought is stored with a zero
// vector in "Other" and can be re-embedded later by Reindex.
func (s *Service) CreateThought(ctx context.Context, content string) (*types.Thought, error) {
	content, err := types.NormalizeContent(content, s.maxLength)
	if err != nil {
		return nil, err
	}

	thought := &types.Thought{Content: content}
	if err := s.classify(ctx, thought); err != nil {
		return nil, err
	}

	if err := s.store.CreateThought(ctx, thought); err != nil {
		return nil, fmt.Errorf("failed to store thought: %w", err)
	}

	s.logger.Debug().
		Str("thought_id", thought.ID).
		Str("category", thought.CategoryName()).
		Msg("thought created")
	return thought, nil
}

// EditThought replaces the content of a live thought, recomputing its embedding and category
func (s *Service) EditThought(ctx context.Context, id, content string) (*types.Thought, error) {
	content, err := types.NormalizeContent(content, s.maxLength)
	if err != nil {
		return nil, err
	}

	thought, err := s.store.GetThought(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("thought %s: %w", id, err)
	}
	if thought.Content == content {
		return thought, nil
	}

	thought.Content = content
	if err := s.classify(ctx, thought); err != nil {
		return nil, err
	}

	if err := s.store.UpdateThought(ctx, thought); err != nil {
		return nil, fmt.Errorf("failed to update thought: %w", err)
	}
	return thought, nil
}

// classify fills Vector, Provider, Model, CategoryID and Category from thought.Content
func (s *Service) classify(ctx context.Context, thought *types.Thought) error {
	thought.Provider = s.embedder.Provider()
	thought.Model = s.embedder.Model()

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: thought.Content})
	if err != nil {
		s.logger.Warn().Err(err).Msg("embedding unavailable, thought stored under Other")
		thought.Vector = make([]float32, s.embedder.Dimension())
		return s.assignOther(ctx, thought)
	}
	thought.Vector = emb.Vector
	thought.Provider = emb.Provider
	thought.Model = emb.Model

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	assignment, err := s.categorizer.Categorize(ctx, thought.Content, thought.Vector, categories)
	if err != nil {
		s.logger.Warn().Err(err).Msg("categorization failed, thought stored under Other")
		return s.assignOther(ctx, thought)
	}
	if assignment.Category == nil || !assignment.Category.IsActive {
		return s.assignOther(ctx, thought)
	}

	category := *assignment.Category
	thought.CategoryID = category.ID
	thought.Category = &category
	return nil
}

func (s *Service) assignOther(ctx context.Context, thought *types.Thought) error {
	other, err := s.EnsureOther(ctx)
	if err != nil {
		return err
	}
	thought.CategoryID = other.ID
	thought.Category = other
	return nil
}

// GetThought returns a live thought
func (s *Service) GetThought(ctx context.Context, id string) (*types.Thought, error) {
	thought, err := s.store.GetThought(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("thought %s: %w", id, err)
	}
	return thought, nil
}

// DeleteThoughts soft-deletes the given thoughts and returns how many were deleted
func (s *Service) DeleteThoughts(ctx context.Context, ids ...string) (int, error) {
	count, err := s.store.DeleteThoughts(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete thoughts: %w", err)
	}
	return count, nil
}

// ListThoughts returns live thoughts newest first
func (s *Service) ListThoughts(ctx context.Context, opts ListOptions) ([]*types.Thought, error) {
	thoughts, err := s.store.ListThoughts(ctx, &storage.ThoughtFilter{
		Category: opts.Category,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list thoughts: %w", err)
	}
	return thoughts, nil
}

// RecentSnippets returns the content of the n newest thoughts in a category
func (s *Service) RecentSnippets(ctx context.Context, category string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultSnippetCount
	}
	thoughts, err := s.ListThoughts(ctx, ListOptions{Category: category, Limit: n})
	if err != nil {
		return nil, err
	}

	snippets := make([]string, len(thoughts))
	for i, thought := range thoughts {
		snippets[i] = thought.Content
	}
	return snippets, nil
}
