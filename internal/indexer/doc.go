// Package indexer keeps stored embeddings consistent with the configured
// embedding provider.
//
// Thoughts carry the vector produced when they were written. Switching
// providers (or models) changes the vector dimension, and thoughts with a
// different dimension are skipped by semantic ranking. Reindex finds those
// thoughts, embeds them again in batches over a bounded worker pool and writes
// each batch in a single transaction:
//
//	idx := indexer.New(store, emb, cat, logger)
//	stats, err := idx.Reindex(ctx, &indexer.Config{Recategorize: true})
//
// Only one reindex runs at a time; a concurrent call fails fast with
// ErrReindexInProgress. Provider failures are counted in Statistics and never
// retried.
package indexer
