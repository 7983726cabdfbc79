// Package thoughts is the application service for jotdown.
//
// It connects persistence to the retrieval core: every thought written is
// embedded and categorized against the active categories' anchor descriptions,
// with "Other" as the fallback whenever nothing fits or the embedding provider
// is unavailable. It also owns the category lifecycle (add, describe, archive,
// generate from the profile bio) and exposes search in all three retrieval
// modes. Service.Search has the shape session.Searcher expects, so an
// interactive search box can be driven directly from it.
package thoughts
