package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/dshills/jotdown/pkg/types"
)

// Entry is a candidate item and its embedding
type Entry struct {
	ID     string
	Vector []float32
}

// Scored is a ranked item id with its cosine similarity to the query
type Scored struct {
	ID    string
	Score float64
}

// Skipped records a candidate excluded from ranking because its vector
// length differs from the query's
type Skipped struct {
	ID        string
	Dimension int
}

// Ranking is the output of Rank
type Ranking struct {
	Results []Scored  // Non-increasing by score; ties keep candidate order
	Skipped []Skipped // Data-integrity warnings, in candidate order
}

// Cosine returns the cosine similarity of a and b.
// Zero-magnitude vectors score 0. Vectors of different length return ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", types.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores every candidate against query and returns the top limit ids by similarity.
// limit <= 0 returns every comparable candidate. Candidates whose dimension differs
// from the query are reported in Skipped rather than failing the ranking. An empty
// query vector cannot be compared with anything and fails with ErrDimensionMismatch.
func Rank(query []float32, candidates []Entry, limit int) (*Ranking, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", types.ErrDimensionMismatch)
	}

	ranking := &Ranking{Results: make([]Scored, 0, len(candidates))}
	for _, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil {
			ranking.Skipped = append(ranking.Skipped, Skipped{ID: c.ID, Dimension: len(c.Vector)})
			continue
		}
		ranking.Results = append(ranking.Results, Scored{ID: c.ID, Score: score})
	}

	sort.SliceStable(ranking.Results, func(i, j int) bool {
		return ranking.Results[i].Score > ranking.Results[j].Score
	})

	if limit > 0 && limit < len(ranking.Results) {
		ranking.Results = ranking.Results[:limit]
	}
	return ranking, nil
}

// IDs returns the ranked ids in order
func (r *Ranking) IDs() []string {
	ids := make([]string, len(r.Results))
	for i, s := range r.Results {
		ids[i] = s.ID
	}
	return ids
}
