package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/client/models"
)

// ProfileService reads and writes the user's profile row through the
// gateway. Field validation is the form layer's concern, not this one's.
type ProfileService struct {
	gw gateway.Gateway
}

// NewProfileService constructs a ProfileService bound to the given gateway.
func NewProfileService(gw gateway.Gateway) *ProfileService {
	return &ProfileService{gw: gw}
}

// Get returns the profile row for userID. Absence surfaces as
// common.ErrNotFound.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.gw.FetchProfileRow(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// Update writes the mutable profile fields.
func (s *ProfileService) Update(ctx context.Context, profile *models.Profile) error {
	if err := s.gw.UpdateProfileRow(ctx, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// CompleteOnboarding marks userID's profile as onboarded.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	profile, err := s.gw.FetchProfileRow(ctx, userID)
	if err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	if profile.OnboardingComplete {
		return nil
	}
	profile.OnboardingComplete = true
	if err := s.gw.UpdateProfileRow(ctx, profile); err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	return nil
}
