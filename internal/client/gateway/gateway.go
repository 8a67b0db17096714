// Package gateway defines the remote session gateway: the client's only view
// of the identity/database provider. Consumers depend on the Gateway
// interface; the concrete implementation speaks the provider's REST API.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/tandem/internal/client/models"
)

// Event identifies the kind of session change delivered to subscribers.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Session is proof of authentication issued by the identity provider.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         models.User
}

// Expired reports whether the access token's lifetime has elapsed.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Handler receives session-change notifications. sess is nil on sign-out.
type Handler func(event Event, sess *Session)

// Subscription is a handle to an active change subscription.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SignUpRequest carries the fields needed to create an account.
type SignUpRequest struct {
	Email    string
	Password string
	FullName string
}

// Gateway defines all remote operations the client performs against the
// identity/database provider.
//
// Contract:
//   - GetCurrentSession: return the current session, or (nil, nil) when
//     there is none. Transport failures wrap common.ErrNetwork; callers
//     treat them the same as "no session".
//   - Subscribe: register a handler for session changes for the life of the
//     process. Handlers for one gateway are invoked in event order.
//   - FetchProfileRow / FetchRoleRow: read rows for a user id; absence is
//     reported as common.ErrNotFound, never invented defaults.
//   - SignIn / SignUp / SignOut: credential operations; failures propagate
//     to the caller (common.ErrInvalidCredentials, common.ErrNetwork).
//
// All methods must honor context cancellation/timeouts.
type Gateway interface {
	GetCurrentSession(ctx context.Context) (*Session, error)
	Subscribe(h Handler) Subscription
	FetchProfileRow(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfileRow(ctx context.Context, profile *models.Profile) error
	FetchRoleRow(ctx context.Context, userID uuid.UUID) (models.Role, error)
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req SignUpRequest) error
	SignOut(ctx context.Context) error
	Close() error
}
