package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/jotdown/internal/categorizer"
	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/pkg/types"
)

const (
	// DefaultWorkers bounds concurrent embedding batches; providers are network bound
	DefaultWorkers = 4
	// DefaultBatchSize is the number of thoughts embedded per provider call
	DefaultBatchSize = 20
)

// ErrReindexInProgress is returned when a reindex is already running
var ErrReindexInProgress = errors.New("reindex already in progress")

// Indexer re-embeds stored thoughts whose vectors no longer match the active
// embedding provider, and optionally re-categorizes them with the new vectors.
type Indexer struct {
	storage     storage.Storage
	embedder    embedder.Embedder
	categorizer *categorizer.Categorizer // nil disables re-categorization
	lock        IndexLock
	logger      zerolog.Logger
}

// Config contains configuration for a reindex run
type Config struct {
	Workers      int  // Concurrent embedding batches (default: DefaultWorkers)
	BatchSize    int  // Thoughts per embedding call (default: DefaultBatchSize, max embedder.MaxBatchSize)
	Force        bool // Re-embed every thought, not only mismatched ones
	Recategorize bool // Re-run categorization with the new vectors
}

// Statistics contains statistics about a reindex run
type Statistics struct {
	Scanned       int
	Reembedded    int
	Recategorized int
	Failed        int
	Duration      time.Duration
	ErrorMessages []string
}

// New creates an Indexer. cat may be nil.
func New(store storage.Storage, e embedder.Embedder, cat *categorizer.Categorizer, logger zerolog.Logger) *Indexer {
	return &Indexer{
		storage:     store,
		embedder:    e,
		categorizer: cat,
		logger:      logger,
	}
}

// Reindex re-embeds stale thoughts. Failed batches are counted and reported in
// the statistics rather than aborting the run; nothing is retried.
func (idx *Indexer) Reindex(ctx context.Context, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrReindexInProgress
	}
	defer idx.lock.Release()

	config = normalizeConfig(config)
	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	thoughts, err := idx.storage.ListThoughts(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list thoughts: %w", err)
	}
	stats.Scanned = len(thoughts)

	dimension := idx.embedder.Dimension()
	stale := make([]*types.Thought, 0, len(thoughts))
	for _, thought := range thoughts {
		if config.Force || thought.Dimension() != dimension {
			stale = append(stale, thought)
		}
	}

	var categories []types.Category
	if config.Recategorize && idx.categorizer != nil {
		categories, err = idx.storage.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}
	}

	idx.logger.Info().
		Int("scanned", stats.Scanned).
		Int("stale", len(stale)).
		Int("dimension", dimension).
		Bool("force", config.Force).
		Msg("reindex started")

	if err := idx.reembed(ctx, stale, categories, config, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	idx.logger.Info().
		Int("reembedded", stats.Reembedded).
		Int("recategorized", stats.Recategorized).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("reindex finished")
	return stats, nil
}

func normalizeConfig(config *Config) *Config {
	out := Config{}
	if config != nil {
		out = *config
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.BatchSize > embedder.MaxBatchSize {
		out.BatchSize = embedder.MaxBatchSize
	}
	return &out
}

// reembed fans batches out over a bounded errgroup. Only context cancellation
// or a storage failure aborts the group; provider failures are tallied.
func (idx *Indexer) reembed(ctx context.Context, stale []*types.Thought, categories []types.Category,
	config *Config, stats *Statistics) error {

	var (
		reembedded    atomic.Int32
		recategorized atomic.Int32
		failed        atomic.Int32
		mu            sync.Mutex // Protect stats.ErrorMessages
	)
	recordFailure := func(count int, err error) {
		failed.Add(int32(count))
		mu.Lock()
		stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i := 0; i < len(stale); i += config.BatchSize {
		end := i + config.BatchSize
		if end > len(stale) {
			end = len(stale)
		}
		batch := stale[i:end]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			updates, err := idx.embedBatch(gctx, batch, categories)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				idx.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("reindex batch failed")
				recordFailure(len(batch), err)
				return nil
			}

			moved, err := idx.writeBatch(gctx, updates)
			if err != nil {
				return err
			}
			reembedded.Add(int32(len(updates)))
			recategorized.Add(int32(moved))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("reindex aborted: %w", err)
	}

	stats.Reembedded = int(reembedded.Load())
	stats.Recategorized = int(recategorized.Load())
	stats.Failed = int(failed.Load())
	return nil
}

// update is one thought's new embedding and, when re-categorized, its new category
type update struct {
	thought    *types.Thought
	emb        *embedder.Embedding
	categoryID string // Empty keeps the current category
}

func (idx *Indexer) embedBatch(ctx context.Context, batch []*types.Thought, categories []types.Category) ([]update, error) {
	texts := make([]string, len(batch))
	for i, thought := range batch {
		texts[i] = thought.Content
	}

	resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(batch), err)
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("embed batch: got %d embeddings for %d thoughts", len(resp.Embeddings), len(batch))
	}

	updates := make([]update, len(batch))
	for i, thought := range batch {
		updates[i] = update{thought: thought, emb: resp.Embeddings[i]}
		if len(categories) == 0 {
			continue
		}

		assignment, err := idx.categorizer.Categorize(ctx, thought.Content, resp.Embeddings[i].Vector, categories)
		if err != nil {
			idx.logger.Warn().Err(err).Str("thought_id", thought.ID).Msg("re-categorization failed, category kept")
			continue
		}
		if assignment.Category != nil && assignment.Category.ID != thought.CategoryID {
			updates[i].categoryID = assignment.Category.ID
		}
	}
	return updates, nil
}

// writeBatch persists a batch in one transaction and returns how many thoughts changed category
func (idx *Indexer) writeBatch(ctx context.Context, updates []update) (int, error) {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	moved := 0
	for _, u := range updates {
		if u.categoryID == "" {
			err = tx.UpdateThoughtVector(ctx, u.thought.ID, u.emb.Vector, u.emb.Provider, u.emb.Model)
		} else {
			changed := *u.thought
			changed.CategoryID = u.categoryID
			changed.Vector = u.emb.Vector
			changed.Provider = u.emb.Provider
			changed.Model = u.emb.Model
			err = tx.UpdateThought(ctx, &changed)
		}
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted since the scan
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to update thought %s: %w", u.thought.ID, err)
		}
		if u.categoryID != "" {
			moved++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return moved, nil
}
