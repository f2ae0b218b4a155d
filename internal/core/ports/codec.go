// Package ports defines the interfaces between the core and its adapters.
package ports

import (
	"errors"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
)

// ErrSessionInvalid is returned for any token that cannot be decoded into
// a trusted session: tampered ciphertext, wrong key, malformed payload,
// or expiry. Callers must not be able to tell these cases apart.
var ErrSessionInvalid = errors.New("session token invalid")

// SessionCodec turns a session record into an opaque cookie value and
// back. Decode fails closed: there is no partially-trusted result.
type SessionCodec interface {
	// Encode serializes and seals the session into a cookie-safe token.
	Encode(session *domain.Session) (string, error)

	// Decode verifies and opens a token. Returns ErrSessionInvalid for
	// any tampered, mis-keyed, malformed, or expired token.
	Decode(token string) (*domain.Session, error)
}
