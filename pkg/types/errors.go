package types

import "errors"

// Failure taxonomy surfaced by the retrieval and categorization core
var (
	// ErrInvalidPattern is returned for a malformed literal-match expression
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrEmbeddingUnavailable is returned when the embedding backend failed or timed out
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrGenerationUnavailable is returned when the generative backend failed
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrDimensionMismatch signals vectors of differing length were compared
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Domain errors for type validation
var (
	ErrEmptyContent       = errors.New("content cannot be empty")
	ErrContentTooLong     = errors.New("content exceeds maximum length")
	ErrMissingCategory    = errors.New("thought must reference a category")
	ErrEmptyName          = errors.New("category name cannot be empty")
	ErrEmptyDescription   = errors.New("category description cannot be empty")
	ErrCategoryExists     = errors.New("category already exists")
	ErrOtherNotArchivable = errors.New("the Other category cannot be archived")
	ErrNoProfile          = errors.New("profile bio is empty")
)
