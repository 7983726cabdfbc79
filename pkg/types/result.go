package types

import "time"

// SearchResult represents a single ranked thought
type SearchResult struct {
	Thought Thought
	Rank    int // Position in result set (1-based)

	// Score depends on the strategy that produced the result:
	// literal matches score 1, semantic matches carry cosine similarity,
	// generative candidates carry the similarity that selected them.
	Score float64
}

// Status summarizes what is stored
type Status struct {
	LiveThoughts       int
	DeletedThoughts    int
	ActiveCategories   int
	ArchivedCategories int
	ByDimension        map[int]int // vector length -> live thought count
	DatabaseSizeMB     float64
	LastThoughtAt      time.Time
}
