//go:build unit

package sessioncodec

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func testSession(now time.Time) *domain.Session {
	return &domain.Session{
		UserID:      "user-1234",
		Email:       "user@example.com",
		DisplayName: "Test User",
		Groups:      []string{"admins", "staff"},
		MFAVerified: true,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
		SourceIP:    "203.0.113.7",
	}
}

// TestCodec_RoundTrip verifies decode(encode(S, K), K) == S, including
// sub-second timestamps.
func TestCodec_RoundTrip(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Round(0) strips the monotonic clock reading, which does not
	// survive serialization; the wall-clock instant round-trips at
	// full nanosecond precision.
	now := time.Now().Round(0)
	if now.Nanosecond() == 0 {
		now = now.Add(123456789 * time.Nanosecond)
	}
	session := testSession(now)

	token, err := codec.Encode(session)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if !reflect.DeepEqual(decoded, session) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, session)
	}
}

// TestCodec_RoundTrip_GroupsShape verifies empty and nil group lists
// both survive the round trip unchanged.
func TestCodec_RoundTrip_GroupsShape(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	now := time.Now().Round(0)
	for _, groups := range [][]string{nil, {}, {"admins"}} {
		session := testSession(now)
		session.Groups = groups

		token, err := codec.Encode(session)
		if err != nil {
			t.Fatalf("Encode() failed: %v", err)
		}
		decoded, err := codec.Decode(token)
		if err != nil {
			t.Fatalf("Decode() failed: %v", err)
		}

		if !reflect.DeepEqual(decoded.Groups, groups) {
			t.Errorf("groups round trip: got %#v, want %#v", decoded.Groups, groups)
		}
	}
}

// TestCodec_TamperRejection flips every byte of a token in turn and
// verifies each mutation fails to decode.
func TestCodec_TamperRejection(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	now := time.Unix(time.Now().Unix(), 0)
	token, err := codec.Encode(testSession(now))
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}

	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01

		_, err := codec.Decode(base64.RawURLEncoding.EncodeToString(mutated))
		if !errors.Is(err, ports.ErrSessionInvalid) {
			t.Fatalf("byte %d: Decode() error = %v, want ErrSessionInvalid", i, err)
		}
	}
}

// TestCodec_ExpiryEnforcement verifies a correctly-keyed, structurally
// valid token fails decode once ExpiresAt has passed.
func TestCodec_ExpiryEnforcement(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	codec, err := NewWithClock(testKey(), func() time.Time { return clock })
	if err != nil {
		t.Fatalf("NewWithClock() failed: %v", err)
	}

	session := testSession(clock)
	token, err := codec.Encode(session)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	// Still valid one second before expiry.
	clock = session.ExpiresAt.Add(-time.Second)
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("Decode() before expiry failed: %v", err)
	}

	// Invalid at the exact expiry instant: no grace window.
	clock = session.ExpiresAt
	if _, err := codec.Decode(token); !errors.Is(err, ports.ErrSessionInvalid) {
		t.Errorf("Decode() at expiry error = %v, want ErrSessionInvalid", err)
	}

	clock = session.ExpiresAt.Add(time.Hour)
	if _, err := codec.Decode(token); !errors.Is(err, ports.ErrSessionInvalid) {
		t.Errorf("Decode() after expiry error = %v, want ErrSessionInvalid", err)
	}
}

// TestCodec_WrongKey verifies a token minted under one key does not
// decode under another.
func TestCodec_WrongKey(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	otherKey := testKey()
	otherKey[0] ^= 0xFF
	other, err := New(otherKey)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	now := time.Unix(time.Now().Unix(), 0)
	token, err := codec.Encode(testSession(now))
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if _, err := other.Decode(token); !errors.Is(err, ports.ErrSessionInvalid) {
		t.Errorf("Decode() with wrong key error = %v, want ErrSessionInvalid", err)
	}
}

// TestCodec_MalformedTokens verifies garbage input is rejected.
func TestCodec_MalformedTokens(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!not-base64!!"},
		{"too short", base64.RawURLEncoding.EncodeToString([]byte("abc"))},
		{"random bytes", base64.RawURLEncoding.EncodeToString(make([]byte, 64))},
	}

	for _, tc := range tests {
		if _, err := codec.Decode(tc.token); !errors.Is(err, ports.ErrSessionInvalid) {
			t.Errorf("Decode(%s) error = %v, want ErrSessionInvalid", tc.name, err)
		}
	}
}

// TestCodec_EncodeRejectsInvalidSession verifies the structural
// invariants are enforced before sealing.
func TestCodec_EncodeRejectsInvalidSession(t *testing.T) {
	codec, err := New(testKey())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	now := time.Unix(time.Now().Unix(), 0)

	tests := []struct {
		name    string
		session *domain.Session
	}{
		{"no email", &domain.Session{UserID: "u", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}},
		{"expiry before issuance", &domain.Session{Email: "u@example.com", IssuedAt: now, ExpiresAt: now.Add(-time.Hour)}},
		{"expiry equals issuance", &domain.Session{Email: "u@example.com", IssuedAt: now, ExpiresAt: now}},
	}

	for _, tc := range tests {
		if _, err := codec.Encode(tc.session); err == nil {
			t.Errorf("Encode(%s) should fail", tc.name)
		}
	}
}

// TestNew_KeySize verifies only 32-byte keys are accepted.
func TestNew_KeySize(t *testing.T) {
	for _, size := range []int{0, 16, 24, 31, 33, 64} {
		if _, err := New(make([]byte, size)); err == nil {
			t.Errorf("New() accepted %d-byte key", size)
		}
	}
}
