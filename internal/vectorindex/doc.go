// Package vectorindex ranks items by cosine similarity to a query vector.
//
// Rank is a pure function: the same query and candidates always produce the
// same ordering. Results are sorted by descending similarity and equal scores
// keep their candidate order. Zero-magnitude vectors score 0. A candidate whose
// length differs from the query is skipped and reported in Ranking.Skipped so
// one bad item cannot block retrieval of the rest.
//
//	ranking, err := vectorindex.Rank(queryVec, entries, 5)
//	if err != nil {
//	    return err // empty query vector
//	}
//	for _, s := range ranking.Skipped {
//	    logger.Warn().Str("id", s.ID).Int("dimension", s.Dimension).Msg("skipped")
//	}
package vectorindex
