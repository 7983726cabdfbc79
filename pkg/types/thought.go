package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxThoughtLength is the character limit for a single thought
const DefaultMaxThoughtLength = 250

// Thought is a short free-text note assigned to exactly one category
type Thought struct {
	// Identification
	ID        string
	CreatedAt time.Time // Immutable once created
	UpdatedAt time.Time

	// Content
	Content string

	// Classification
	CategoryID string
	Category   *Category // Populated by storage joins; nil when not loaded

	// Embedding of Content, recomputed on edit
	Vector    []float32
	Provider  string
	Model     string
	DeletedAt *time.Time // Nullable - soft delete marker
}

// Dimension returns the length of the stored embedding vector
func (t *Thought) Dimension() int {
	return len(t.Vector)
}

// IsDeleted reports whether the thought has been soft deleted
func (t *Thought) IsDeleted() bool {
	return t.DeletedAt != nil
}

// CategoryName returns the name of the loaded category, or "" when not loaded
func (t *Thought) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// NormalizeContent trims surrounding whitespace and validates length.
// maxLen <= 0 disables the length check.
func NormalizeContent(content string, maxLen int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return "", ErrContentTooLong
	}
	return content, nil
}

// Validate checks the thought invariants that can be verified in isolation
func (t *Thought) Validate() error {
	if strings.TrimSpace(t.Content) == "" {
		return ErrEmptyContent
	}
	if t.CategoryID == "" {
		return ErrMissingCategory
	}
	return nil
}
