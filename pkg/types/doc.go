// Package types provides shared type definitions for jotdown.
//
// # Core Types
//
// Thought is a short note with a creation time, its content, exactly one
// category and an embedding of the content:
//
//	thought := &types.Thought{
//	    Content:    "buy strings for the cello",
//	    CategoryID: music.ID,
//	}
//
// Category carries a description that acts as the semantic anchor when new
// thoughts are categorized. Categories are archived, never removed, so every
// thought keeps a valid reference. The sentinel "Other" category is the
// fallback for thoughts that fit nothing else; it cannot be archived and sorts
// after every other active category:
//
//	active := types.SortActive(all) // alphabetical, "Other" last
//
// # Errors
//
// The failures surfaced by the core are sentinels meant for errors.Is:
//
//	if errors.Is(err, types.ErrEmbeddingUnavailable) {
//	    // show a retry affordance
//	}
package types
