package storage

import (
	"context"

	"github.com/dshills/jotdown/pkg/types"
)

// Storage defines the interface for persisting thoughts, categories and the profile
type Storage interface {
	// Thought operations
	CreateThought(ctx context.Context, thought *types.Thought) error
	GetThought(ctx context.Context, id string) (*types.Thought, error)
	UpdateThought(ctx context.Context, thought *types.Thought) error
	UpdateThoughtVector(ctx context.Context, id string, vector []float32, provider, model string) error
	DeleteThoughts(ctx context.Context, ids []string) (deletedCount int, err error)
	ListThoughts(ctx context.Context, filter *ThoughtFilter) ([]*types.Thought, error)

	// Category operations
	CreateCategory(ctx context.Context, category *types.Category) error
	GetCategory(ctx context.Context, id string) (*types.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*types.Category, error)
	UpdateCategory(ctx context.Context, category *types.Category) error
	ListCategories(ctx context.Context) ([]types.Category, error)

	// Profile operations
	GetProfile(ctx context.Context) (*types.Profile, error)
	UpsertProfile(ctx context.Context, profile *types.Profile) error

	// Status operations
	GetStatus(ctx context.Context) (*types.Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ThoughtFilter narrows ListThoughts. A nil filter lists every live thought.
type ThoughtFilter struct {
	Category       string // Category name, matched case-insensitively
	Limit          int    // <= 0 means no limit
	IncludeDeleted bool
}
