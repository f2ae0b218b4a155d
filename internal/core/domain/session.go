package domain

import (
	"errors"
	"time"
)

// Session holds the authenticated user information carried in the cookie.
// This is the core domain model - it has no external dependencies.
type Session struct {
	// UserID is the stable user identifier (SAML NameID, or email
	// when the IdP sends no NameID).
	UserID string

	// Email is the user's email address. Always present in a valid session.
	Email string

	// DisplayName is the human-readable name shown by the dashboard.
	DisplayName string

	// Groups are the group memberships asserted by the IdP. May be empty.
	Groups []string

	// MFAVerified records whether the IdP asserted multi-factor
	// authentication for this login.
	MFAVerified bool

	// IssuedAt is when the session was created.
	IssuedAt time.Time

	// ExpiresAt is when the session expires.
	ExpiresAt time.Time

	// SourceIP is the client address observed when the session was issued.
	SourceIP string
}

// Validate checks the structural invariants of a session record.
// A session that fails Validate must never be encoded or trusted.
func (s *Session) Validate() error {
	if s.Email == "" {
		return errors.New("session has no email")
	}
	if !s.ExpiresAt.After(s.IssuedAt) {
		return errors.New("session expiry is not after issuance")
	}
	return nil
}

// Expired reports whether the session has passed its expiry at the
// given instant. There is no grace window.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
