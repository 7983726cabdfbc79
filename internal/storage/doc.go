// Package storage provides SQLite-based persistence for thoughts, categories
// and the user profile.
//
// # Database Schema
//
// Tables:
//   - categories: name (unique, case-insensitive), anchor description, active flag
//   - thoughts: content, category reference, embedding vector, soft-delete marker
//   - profile: a single row holding the name and bio used for category generation
//   - schema_version: applied migrations, compared with semantic versioning
//
// Vectors are stored inline as little-endian float32 blobs together with their
// dimension, so thoughts embedded by a different provider can be found and
// re-embedded.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.jotdown/jotdown.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	thoughts, err := store.ListThoughts(ctx, &storage.ThoughtFilter{Category: "music"})
//
// # Transactions
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpdateCategory(ctx, category); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Build Tags
//
// The default build uses modernc.org/sqlite and needs no C compiler. Building
// with -tags cgo_sqlite switches to github.com/mattn/go-sqlite3.
package storage
