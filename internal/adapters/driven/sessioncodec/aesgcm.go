// Package sessioncodec seals session records into self-contained cookie
// tokens with authenticated encryption. There is no server-side store:
// the token is the session.
package sessioncodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

// KeySize is the required key length: AES-256.
const KeySize = 32

// sessionPayload is the canonical compact serialization inside the
// ciphertext. Timestamps are unix nanoseconds so sub-second instants
// round-trip exactly.
type sessionPayload struct {
	UserID      string   `json:"uid"`
	Email       string   `json:"eml"`
	DisplayName string   `json:"nam,omitempty"`
	Groups      []string `json:"grp"`
	MFAVerified bool     `json:"mfa,omitempty"`
	IssuedAt    int64    `json:"iat"`
	ExpiresAt   int64    `json:"exp"`
	SourceIP    string   `json:"sip,omitempty"`
}

// Codec encrypts and decrypts session tokens with AES-256-GCM.
// The token is base64url(nonce || ciphertext) with no padding, so it is
// safe inside a cookie value.
type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// New creates a codec from a 32-byte symmetric key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init AEAD: %w", err)
	}

	return &Codec{aead: aead, now: time.Now}, nil
}

// NewWithClock creates a codec with an injected clock. For testing
// expiry behavior.
func NewWithClock(key []byte, now func() time.Time) (*Codec, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	c.now = now
	return c, nil
}

// Encode seals a session into an opaque token.
func (c *Codec) Encode(session *domain.Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", fmt.Errorf("invalid session: %w", err)
	}

	plaintext, err := json.Marshal(sessionPayload{
		UserID:      session.UserID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
		Groups:      session.Groups,
		MFAVerified: session.MFAVerified,
		IssuedAt:    session.IssuedAt.UnixNano(),
		ExpiresAt:   session.ExpiresAt.UnixNano(),
		SourceIP:    session.SourceIP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a token and returns the session it carries. Any tampering,
// wrong key, structurally invalid payload, or expiry yields
// ports.ErrSessionInvalid. Expiry is checked against the decoder's clock,
// so a token dies the instant ExpiresAt passes.
func (c *Codec) Decode(token string) (*domain.Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ports.ErrSessionInvalid
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+1 {
		return nil, ports.ErrSessionInvalid
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ports.ErrSessionInvalid
	}

	var p sessionPayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, ports.ErrSessionInvalid
	}

	session := &domain.Session{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Groups:      p.Groups,
		MFAVerified: p.MFAVerified,
		IssuedAt:    time.Unix(0, p.IssuedAt),
		ExpiresAt:   time.Unix(0, p.ExpiresAt),
		SourceIP:    p.SourceIP,
	}

	if err := session.Validate(); err != nil {
		return nil, ports.ErrSessionInvalid
	}
	if session.Expired(c.now()) {
		return nil, ports.ErrSessionInvalid
	}

	return session, nil
}

// Interface guard
var _ ports.SessionCodec = (*Codec)(nil)
