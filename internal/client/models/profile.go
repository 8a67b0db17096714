package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the user's mutable application record, stored in the provider's
// profiles table and keyed by the user id. It is separate from the session
// itself: a user can be authenticated without a profile row existing yet.
type Profile struct {
	// ID matches the owning user's id.
	ID uuid.UUID

	// FullName is the user's display name.
	FullName string

	// PartnerName is the display name of the user's partner.
	PartnerName string

	// AnniversaryDate is the couple's anniversary, nil when not set.
	AnniversaryDate *time.Time

	// AvatarURL references the user's avatar image, empty when not set.
	AvatarURL string

	// OnboardingComplete reports whether the one-time setup flow finished.
	OnboardingComplete bool

	// CreatedAt / UpdatedAt are provider-maintained row timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}
