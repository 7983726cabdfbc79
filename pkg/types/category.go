package types

import (
	"sort"
	"strings"
	"time"
)

// OtherCategoryName is the sentinel fallback category.
// It always exists once any thought has been written and can never be archived.
const OtherCategoryName = "Other"

// OtherCategoryDescription is used when the sentinel category is auto-created
const OtherCategoryDescription = "Thoughts that do not fit any other category"

// Category groups thoughts; Description is the semantic anchor used for categorization
type Category struct {
	ID          string
	Name        string // Unique case-insensitively
	Description string
	IsActive    bool // false = archived
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOther reports whether c is the sentinel fallback category
func (c *Category) IsOther() bool {
	return IsOtherName(c.Name)
}

// IsOtherName reports whether name refers to the sentinel category
func IsOtherName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), OtherCategoryName)
}

// SameName compares category names case-insensitively, ignoring surrounding whitespace
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Validate checks name and description are present
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// SortActive returns the active categories ordered alphabetically with "Other" last.
// The input slice is not modified.
func SortActive(categories []Category) []Category {
	active := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			active = append(active, c)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].IsOther() {
			return false
		}
		if active[j].IsOther() {
			return true
		}
		return strings.ToLower(active[i].Name) < strings.ToLower(active[j].Name)
	})
	return active
}

// Archived returns the archived categories in input order
func Archived(categories []Category) []Category {
	archived := make([]Category, 0)
	for _, c := range categories {
		if !c.IsActive {
			archived = append(archived, c)
		}
	}
	return archived
}

// FindByName returns the first category whose name matches case-insensitively
func FindByName(categories []Category, name string) (*Category, bool) {
	for i := range categories {
		if SameName(categories[i].Name, name) {
			return &categories[i], true
		}
	}
	return nil, false
}

// Profile describes the user; Bio seeds category generation
type Profile struct {
	Name      string
	Bio       string
	UpdatedAt time.Time
}
