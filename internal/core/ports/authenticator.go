package ports

import (
	"net/url"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
)

// Authenticator is the port for the SAML bridge. The production adapter
// wraps crewjam/saml; tests substitute a stub.
type Authenticator interface {
	// StartLogin builds the IdP-bound redirect URL for an AuthnRequest
	// carrying the given RelayState.
	StartLogin(relayState string) (*url.URL, error)

	// VerifyResponse validates a decoded SAMLResponse document
	// (signature, time window, audience, issuer) and extracts the
	// subject identity. Every failed check yields the same
	// assertion-invalid error; the failing check is never surfaced
	// past this boundary.
	VerifyResponse(responseXML []byte) (*domain.Identity, error)

	// Metadata returns the SP metadata document. Output is byte-identical
	// across calls for a fixed configuration.
	Metadata() ([]byte, error)
}
