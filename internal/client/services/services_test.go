package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/client/models"
	"github.com/avolkov/tandem/internal/common"
)

// stubGateway implements just the gateway surface the services touch.
type stubGateway struct {
	profile    *models.Profile
	profileErr error
	fetchDelay time.Duration

	updated    *models.Profile
	updateErr  error
	fetchCalls int
}

func (s *stubGateway) FetchProfileRow(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.fetchCalls++
	if s.fetchDelay > 0 {
		select {
		case <-time.After(s.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	cp := *s.profile
	return &cp, nil
}

func (s *stubGateway) UpdateProfileRow(ctx context.Context, profile *models.Profile) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = profile
	return nil
}

func (s *stubGateway) GetCurrentSession(ctx context.Context) (*gateway.Session, error) {
	return nil, nil
}
func (s *stubGateway) Subscribe(h gateway.Handler) gateway.Subscription { return nil }
func (s *stubGateway) FetchRoleRow(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	return "", common.ErrNotFound
}
func (s *stubGateway) SignIn(ctx context.Context, email, password string) error { return nil }
func (s *stubGateway) SignUp(ctx context.Context, req gateway.SignUpRequest) error {
	return nil
}
func (s *stubGateway) SignOut(ctx context.Context) error { return nil }
func (s *stubGateway) Close() error                      { return nil }

func TestProfileService_Get(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id, FullName: "Pat"}}
	svc := NewProfileService(stub)

	p, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Pat", p.FullName)
}

func TestProfileService_GetNotFound(t *testing.T) {
	stub := &stubGateway{profileErr: common.ErrNotFound}
	svc := NewProfileService(stub)

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestProfileService_CompleteOnboarding(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id}}
	svc := NewProfileService(stub)

	require.NoError(t, svc.CompleteOnboarding(context.Background(), id))
	require.NotNil(t, stub.updated)
	assert.True(t, stub.updated.OnboardingComplete)
}

func TestProfileService_CompleteOnboardingAlreadyDone(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id, OnboardingComplete: true}}
	svc := NewProfileService(stub)

	require.NoError(t, svc.CompleteOnboarding(context.Background(), id))
	assert.Nil(t, stub.updated, "no write when already complete")
}

func TestProfileService_CompleteOnboardingWriteFails(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id}, updateErr: common.ErrNetwork}
	svc := NewProfileService(stub)

	err := svc.CompleteOnboarding(context.Background(), id)
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestOnboardingService_Complete(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id, OnboardingComplete: true}}
	svc := NewOnboardingService(stub, 0, nil)

	assert.True(t, svc.HasCompletedOnboarding(context.Background(), id))
}

func TestOnboardingService_Incomplete(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{profile: &models.Profile{ID: id}}
	svc := NewOnboardingService(stub, 0, nil)

	assert.False(t, svc.HasCompletedOnboarding(context.Background(), id))
}

func TestOnboardingService_ErrorAssumesIncomplete(t *testing.T) {
	stub := &stubGateway{profileErr: common.ErrNetwork}
	svc := NewOnboardingService(stub, 0, nil)

	assert.False(t, svc.HasCompletedOnboarding(context.Background(), uuid.New()))
}

func TestOnboardingService_TimeoutAssumesIncomplete(t *testing.T) {
	id := uuid.New()
	stub := &stubGateway{
		profile:    &models.Profile{ID: id, OnboardingComplete: true},
		fetchDelay: time.Second,
	}
	svc := NewOnboardingService(stub, 20*time.Millisecond, nil)

	start := time.Now()
	assert.False(t, svc.HasCompletedOnboarding(context.Background(), id))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "probe must give up at its bound")
}
