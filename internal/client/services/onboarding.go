// Package services contains application services for the tandem client:
// the best-effort onboarding probe and profile reads/writes. Route gating
// itself lives in the route package; nothing here redirects.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/logging"
)

// DefaultProbeTimeout bounds the onboarding probe. The probe informs UI
// hints only, so a short bound beats a precise answer.
const DefaultProbeTimeout = 800 * time.Millisecond

// OnboardingService answers whether a user has completed onboarding,
// best-effort. It never blocks past its bound and never returns an error:
// a failed or timed-out lookup reports "assume incomplete".
type OnboardingService struct {
	gw      gateway.Gateway
	timeout time.Duration
	log     logging.Logger
}

// NewOnboardingService constructs the probe. timeout <= 0 selects
// DefaultProbeTimeout; a nil logger defaults to nop.
func NewOnboardingService(gw gateway.Gateway, timeout time.Duration, log logging.Logger) *OnboardingService {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &OnboardingService{gw: gw, timeout: timeout, log: log.With("component", "onboarding")}
}

// HasCompletedOnboarding reports whether userID finished onboarding. The
// underlying fetch is bounded by the probe timeout; hitting the bound does
// not cancel anything else and simply reports false.
func (s *OnboardingService) HasCompletedOnboarding(ctx context.Context, userID uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	profile, err := s.gw.FetchProfileRow(ctx, userID)
	if err != nil {
		s.log.Debug(ctx, "onboarding probe failed, assuming incomplete", "user", userID, "err", err)
		return false
	}
	return profile.OnboardingComplete
}
