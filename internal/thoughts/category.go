package thoughts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/pkg/types"
)

// ActiveCategories returns active categories alphabetically with "Other" last
func (s *Service) ActiveCategories(ctx context.Context) ([]types.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return types.SortActive(categories), nil
}

// ArchivedCategories returns archived categories alphabetically
func (s *Service) ArchivedCategories(ctx context.Context) ([]types.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return types.Archived(categories), nil
}

// AddCategory creates an active category. A matching archived category is
// reactivated instead, taking the new description when one is given.
func (s *Service) AddCategory(ctx context.Context, name, description string) (*types.Category, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, types.ErrEmptyName
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	existing, err := s.store.GetCategoryByName(ctx, name)
	switch {
	case err == nil && existing.IsActive:
		return nil, fmt.Errorf("category %q: %w", existing.Name, types.ErrCategoryExists)
	case err == nil:
		existing.IsActive = true
		if description != "" {
			existing.Description = description
		}
		if err := s.store.UpdateCategory(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate category: %w", err)
		}
		s.categorizer.Anchors().Invalidate(existing.ID)
		return existing, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}

	if description == "" {
		return nil, types.ErrEmptyDescription
	}

	category := &types.Category{Name: name, Description: description, IsActive: true}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("category %q: %w", name, types.ErrCategoryExists)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// UpdateCategoryDescription changes a category's anchor description.
// An unchanged description is a no-op; a changed one invalidates the cached anchor.
func (s *Service) UpdateCategoryDescription(ctx context.Context, id, description string) (*types.Category, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, types.ErrEmptyDescription
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", id, err)
	}
	if category.Description == description {
		return category, nil
	}

	category.Description = description
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	s.categorizer.Anchors().Invalidate(category.ID)
	s.logger.Debug().Str("category", category.Name).Msg("category anchor invalidated")
	return category, nil
}

// ArchiveCategory hides a category from categorization and listings.
// Its thoughts keep their assignment. "Other" cannot be archived.
func (s *Service) ArchiveCategory(ctx context.Context, id string) (*types.Category, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", id, err)
	}
	if category.IsOther() {
		return nil, types.ErrOtherNotArchivable
	}
	if !category.IsActive {
		return category, nil
	}

	category.IsActive = false
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to archive category: %w", err)
	}
	s.categorizer.Anchors().Invalidate(category.ID)
	return category, nil
}

// FindCategory resolves a category by id or, failing that, by name
func (s *Service) FindCategory(ctx context.Context, idOrName string) (*types.Category, error) {
	category, err := s.store.GetCategory(ctx, idOrName)
	if err == nil {
		return category, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	category, err = s.store.GetCategoryByName(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", idOrName, err)
	}
	return category, nil
}

// EnsureOther returns the "Other" category, creating or reactivating it as needed
func (s *Service) EnsureOther(ctx context.Context) (*types.Category, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()
	return ensureOther(ctx, s.store)
}

func ensureOther(ctx context.Context, store storage.Storage) (*types.Category, error) {
	other, err := store.GetCategoryByName(ctx, types.OtherCategoryName)
	if err == nil {
		if !other.IsActive {
			other.IsActive = true
			if err := store.UpdateCategory(ctx, other); err != nil {
				return nil, fmt.Errorf("failed to reactivate %s: %w", types.OtherCategoryName, err)
			}
		}
		return other, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to look up %s: %w", types.OtherCategoryName, err)
	}

	other = &types.Category{
		Name:        types.OtherCategoryName,
		Description: types.OtherCategoryDescription,
		IsActive:    true,
	}
	if err := store.CreateCategory(ctx, other); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", types.OtherCategoryName, err)
	}
	return other, nil
}

// GenerateCategories replaces the active category set with categories generated
// from the profile bio. Every active category except "Other" is archived and the
// generated ones are inserted (reactivating archived name matches), all in one
// transaction. On a generation failure nothing changes.
func (s *Service) GenerateCategories(ctx context.Context) ([]types.Category, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(profile.Bio) == "" {
		return nil, types.ErrNoProfile
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: no category generator configured", types.ErrGenerationUnavailable)
	}

	generated, err := s.generator.GenerateCategories(ctx, profile.Bio)
	if err != nil {
		if !errors.Is(err, types.ErrGenerationUnavailable) {
			err = fmt.Errorf("%w: %v", types.ErrGenerationUnavailable, err)
		}
		return nil, fmt.Errorf("generate categories: %w", err)
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	if err := s.replaceCategories(ctx, generated); err != nil {
		return nil, err
	}
	s.categorizer.Anchors().Purge()

	active, err := s.ActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	// Cold anchors are recomputed on first use
	if err := s.categorizer.Anchors().Warm(ctx, active); err != nil {
		s.logger.Warn().Err(err).Msg("anchor warm-up failed")
	}
	return active, nil
}

func (s *Service) replaceCategories(ctx context.Context, generated []types.Category) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := tx.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	for i := range current {
		category := current[i]
		if !category.IsActive || category.IsOther() {
			continue
		}
		category.IsActive = false
		if err := tx.UpdateCategory(ctx, &category); err != nil {
			return fmt.Errorf("failed to archive %s: %w", category.Name, err)
		}
	}

	for _, g := range generated {
		if g.IsOther() {
			continue
		}
		existing, err := tx.GetCategoryByName(ctx, g.Name)
		if err == nil {
			existing.IsActive = true
			existing.Description = g.Description
			if err := tx.UpdateCategory(ctx, existing); err != nil {
				return fmt.Errorf("failed to reactivate %s: %w", g.Name, err)
			}
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("failed to look up %s: %w", g.Name, err)
		}

		category := &types.Category{Name: g.Name, Description: g.Description, IsActive: true}
		if err := tx.CreateCategory(ctx, category); err != nil {
			return fmt.Errorf("failed to create %s: %w", g.Name, err)
		}
	}

	if _, err := ensureOther(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
