package categorizer

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/pkg/types"
)

// DefaultAnchorCacheSize is used when NewAnchorCache is given a non-positive size
const DefaultAnchorCacheSize = 256

// warmConcurrency bounds parallel anchor embeddings during Warm
const warmConcurrency = 4

type anchor struct {
	textHash string
	vector   []float32
}

// AnchorCache holds the embedded description of each category.
// Entries are validated lazily: a lookup whose description hash no longer
// matches recomputes the vector. Concurrent lookups for the same category and
// description share one embedding call.
type AnchorCache struct {
	embedder embedder.Embedder
	cache    *lru.Cache[string, anchor]
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewAnchorCache creates an anchor cache backed by e
func NewAnchorCache(e embedder.Embedder, size int, logger zerolog.Logger) *AnchorCache {
	if size <= 0 {
		size = DefaultAnchorCacheSize
	}
	cache, err := lru.New[string, anchor](size)
	if err != nil {
		cache, _ = lru.New[string, anchor](DefaultAnchorCacheSize)
	}
	return &AnchorCache{
		embedder: e,
		cache:    cache,
		logger:   logger,
	}
}

// AnchorText is the text embedded for a category
func AnchorText(c types.Category) string {
	return strings.TrimSpace(c.Name) + ". " + strings.TrimSpace(c.Description)
}

func anchorKey(c types.Category) string {
	if c.ID != "" {
		return c.ID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(c.Name))
}

// Vector returns the anchor vector for c, embedding it on first use or after its description changed
func (a *AnchorCache) Vector(ctx context.Context, c types.Category) ([]float32, error) {
	key := anchorKey(c)
	text := AnchorText(c)
	hash := embedder.ComputeHash(text)

	if cached, ok := a.cache.Get(key); ok && cached.textHash == hash {
		return cached.vector, nil
	}

	v, err, _ := a.group.Do(key+"|"+hash, func() (interface{}, error) {
		if cached, ok := a.cache.Get(key); ok && cached.textHash == hash {
			return cached.vector, nil
		}

		emb, err := a.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embed anchor for %q: %w", c.Name, err)
		}

		a.cache.Add(key, anchor{textHash: hash, vector: emb.Vector})
		a.logger.Debug().
			Str("category", c.Name).
			Int("dimension", len(emb.Vector)).
			Msg("anchor vector recomputed")
		return emb.Vector, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Invalidate drops the cached anchor for a category id
func (a *AnchorCache) Invalidate(categoryID string) {
	a.cache.Remove(categoryID)
}

// Purge drops every cached anchor
func (a *AnchorCache) Purge() {
	a.cache.Purge()
}

// Len returns the number of cached anchors
func (a *AnchorCache) Len() int {
	return a.cache.Len()
}

// Warm embeds the anchors of the given categories in parallel.
// Archived categories and the "Other" sentinel are skipped. The first failure is returned.
func (a *AnchorCache) Warm(ctx context.Context, categories []types.Category) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for _, c := range categories {
		if !c.IsActive || c.IsOther() {
			continue
		}
		c := c
		g.Go(func() error {
			_, err := a.Vector(gctx, c)
			return err
		})
	}

	return g.Wait()
}
