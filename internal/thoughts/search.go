package thoughts

import (
	"context"

	"github.com/dshills/jotdown/internal/retrieval"
	"github.com/dshills/jotdown/pkg/types"
)

// SearchOptions describes one search over stored thoughts
type SearchOptions struct {
	Query    string
	Mode     retrieval.Mode
	Limit    int    // 0 selects the engine default for the mode
	Category string // Restrict candidates to one category
}

// Search runs query in mode over every live thought. It satisfies session.Searcher.
func (s *Service) Search(ctx context.Context, query string, mode retrieval.Mode) (*retrieval.Response, error) {
	return s.SearchWithOptions(ctx, SearchOptions{Query: query, Mode: mode})
}

// SearchWithOptions runs a search with an explicit limit or category restriction
func (s *Service) SearchWithOptions(ctx context.Context, opts SearchOptions) (*retrieval.Response, error) {
	items, err := s.candidates(ctx, opts.Category)
	if err != nil {
		return nil, err
	}

	return s.engine.Search(ctx, retrieval.Request{
		Query: opts.Query,
		Mode:  opts.Mode,
		Limit: opts.Limit,
		Items: items,
	})
}

// Keywords extracts the keyword cloud over every live thought, in first-seen order
// from the newest thought to the oldest
func (s *Service) Keywords(ctx context.Context) ([]string, error) {
	items, err := s.candidates(ctx, "")
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}
	return retrieval.ExtractKeywords(texts), nil
}

func (s *Service) candidates(ctx context.Context, category string) ([]types.Thought, error) {
	thoughts, err := s.ListThoughts(ctx, ListOptions{Category: category})
	if err != nil {
		return nil, err
	}

	items := make([]types.Thought, len(thoughts))
	for i, thought := range thoughts {
		items[i] = *thought
	}
	return items, nil
}
