// Package categorizer assigns thoughts to categories by comparing the thought
// embedding with an anchor vector per category.
//
// The anchor is the embedding of the category name and description. Anchors
// live in an AnchorCache keyed by category id; each entry remembers a hash of
// the text it was computed from, so a changed description is recomputed on the
// next lookup and Invalidate can drop an entry eagerly.
//
// When no active category exists, or the best similarity is below the
// threshold, the thought falls back to "Other".
package categorizer
