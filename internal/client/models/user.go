// Package models defines client-side data models used by the tandem client.
package models

import "github.com/google/uuid"

// User is the identity reference carried by a session. It is issued by the
// identity provider and never mutated locally.
type User struct {
	// ID is the provider-assigned identifier (the JWT "sub" claim).
	ID uuid.UUID

	// Email is the address the account was registered with.
	Email string
}
