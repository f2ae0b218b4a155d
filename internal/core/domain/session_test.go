//go:build unit

package domain

import (
	"testing"
	"time"
)

// TestSession_Validate exercises the structural invariants.
func TestSession_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{
			name: "valid",
			session: Session{
				UserID:    "u1",
				Email:     "user@example.com",
				IssuedAt:  now,
				ExpiresAt: now.Add(time.Hour),
			},
		},
		{
			name: "missing email",
			session: Session{
				UserID:    "u1",
				IssuedAt:  now,
				ExpiresAt: now.Add(time.Hour),
			},
			wantErr: true,
		},
		{
			name: "expiry before issuance",
			session: Session{
				Email:     "user@example.com",
				IssuedAt:  now,
				ExpiresAt: now.Add(-time.Minute),
			},
			wantErr: true,
		},
		{
			name: "expiry equals issuance",
			session: Session{
				Email:     "user@example.com",
				IssuedAt:  now,
				ExpiresAt: now,
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		err := tc.session.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

// TestSession_Expired verifies expiry has no grace window.
func TestSession_Expired(t *testing.T) {
	exp := time.Unix(1700000000, 0)
	s := Session{Email: "user@example.com", IssuedAt: exp.Add(-time.Hour), ExpiresAt: exp}

	if s.Expired(exp.Add(-time.Second)) {
		t.Error("session should not be expired before ExpiresAt")
	}
	if !s.Expired(exp) {
		t.Error("session should be expired at ExpiresAt exactly")
	}
	if !s.Expired(exp.Add(time.Second)) {
		t.Error("session should be expired after ExpiresAt")
	}
}
