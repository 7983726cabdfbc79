// Package retrieval searches thoughts with one of three strategies behind a
// single Search call.
//
//   - ModeLiteral treats the query as a case-insensitive regular expression.
//     A malformed pattern fails with types.ErrInvalidPattern.
//   - ModeSemantic embeds the query and ranks stored vectors by cosine
//     similarity, returning the top results (5 by default).
//   - ModeAnswer runs the semantic ranking and hands the candidates to an
//     answer synthesizer, returning prose instead of a ranked list.
//
// An empty query returns an empty response immediately in every mode.
//
// The package also extracts keywords from thought text for the keyword cloud:
// distinct, folded, stop-word-free words in first-seen order.
package retrieval
