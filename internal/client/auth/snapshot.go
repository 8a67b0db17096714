package auth

import "github.com/avolkov/tandem/internal/client/models"

// Snapshot is the atomic unit of truth about the current authentication and
// authorization state. It is an immutable value: writers build a fresh
// Snapshot and publish it wholesale.
type Snapshot struct {
	// User is the authenticated identity, nil when unauthenticated.
	User *models.User

	// Profile is the user's application record, nil until loaded or when
	// no row exists yet.
	Profile *models.Profile

	// IsAdmin is derived from the role row; false until proven true.
	IsAdmin bool

	// IsOnboarded is derived from Profile.OnboardingComplete; false until
	// proven true.
	IsOnboarded bool

	// Initialized becomes true once the first full fetch sequence has
	// completed, successfully or with recoverable partial failure. The
	// store never lets it revert to false.
	Initialized bool
}

// Authenticated reports whether a user identity is present.
func (s Snapshot) Authenticated() bool { return s.User != nil }
