package thoughts

import (
	"context"
	"fmt"

	"github.com/dshills/jotdown/pkg/types"
)

// GetProfile returns the stored profile, or an empty one when none was saved
func (s *Service) GetProfile(ctx context.Context) (*types.Profile, error) {
	profile, err := s.store.GetProfile(ctx)
	if isNotFound(err) {
		return &types.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile saves the profile name and bio
func (s *Service) UpdateProfile(ctx context.Context, name, bio string) (*types.Profile, error) {
	profile := &types.Profile{Name: name, Bio: bio}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}
