package dashborionauth

import (
	"fmt"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
)

// Config holds the configuration for the Dashborion auth gateway.
// It is built once at provision time and treated as immutable afterwards.
type Config struct {
	// EntityID is the SAML entity ID for this SP (required).
	EntityID string `json:"entity_id,omitempty"`

	// IdPMetadataFile is the path to the IdP metadata document.
	// Exactly one of IdPMetadataFile or IdPMetadataURL must be set.
	IdPMetadataFile string `json:"idp_metadata_file,omitempty"`

	// IdPMetadataURL is a URL the IdP metadata document is fetched from
	// once at provision. There is no background refresh; reload the
	// config to pick up new metadata.
	IdPMetadataURL string `json:"idp_metadata_url,omitempty"`

	// SessionKeyFile is the path to a file holding the base64-encoded
	// 32-byte session encryption key (required). Key rotation is a
	// deployment concern: a rotated key invalidates outstanding cookies.
	SessionKeyFile string `json:"session_key_file,omitempty"`

	// CertFile is the path to the SP certificate (PEM). Required when
	// SignRequests is enabled.
	CertFile string `json:"cert_file,omitempty"`

	// KeyFile is the path to the SP private key (PEM). Required when
	// SignRequests is enabled.
	KeyFile string `json:"key_file,omitempty"`

	// SignRequests enables XML signatures on outbound AuthnRequests.
	SignRequests bool `json:"sign_requests,omitempty"`

	// SiteDomain is the external host of the gateway (required), used to
	// build the ACS and metadata URLs registered with the IdP.
	SiteDomain string `json:"site_domain,omitempty"`

	// CookieName is the session cookie name.
	// Defaults to "dashborion_session".
	CookieName string `json:"cookie_name,omitempty"`

	// CookieDomain scopes the session cookie. Empty means host-only.
	CookieDomain string `json:"cookie_domain,omitempty"`

	// SessionTTL is the session lifetime in seconds. Defaults to 3600.
	SessionTTL int `json:"session_ttl,omitempty"`

	// DefaultRedirect is where users land after login when no usable
	// RelayState is present. Defaults to "/".
	DefaultRedirect string `json:"default_redirect,omitempty"`

	// EmailAttribute is the SAML attribute carrying the email address.
	// Defaults to "email".
	EmailAttribute string `json:"email_attribute,omitempty"`

	// DisplayNameAttribute is the SAML attribute carrying the display
	// name. Defaults to "displayName".
	DisplayNameAttribute string `json:"display_name_attribute,omitempty"`

	// GroupsAttribute is the SAML attribute carrying group memberships.
	// Defaults to "groups".
	GroupsAttribute string `json:"groups_attribute,omitempty"`

	// MFAAttribute is the SAML attribute carrying the MFA flag.
	// Defaults to "mfaVerified".
	MFAAttribute string `json:"mfa_attribute,omitempty"`

	// VerifyMetadataSignature enables XML signature verification on the
	// IdP metadata document. Requires MetadataSigningCert.
	VerifyMetadataSignature bool `json:"verify_metadata_signature,omitempty"`

	// MetadataSigningCert is the path to the PEM file containing the
	// certificate(s) trusted to sign the IdP metadata.
	MetadataSigningCert string `json:"metadata_signing_cert,omitempty"`

	// MetricsEnabled enables Prometheus metrics exposition.
	// Defaults to false.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// Validate checks if the configuration is valid. Required fields fail
// here, at provision, rather than lazily mid-request.
func (c *Config) Validate() error {
	if c.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}

	if c.IdPMetadataFile == "" && c.IdPMetadataURL == "" {
		return fmt.Errorf("either idp_metadata_file or idp_metadata_url must be specified")
	}

	if c.IdPMetadataFile != "" && c.IdPMetadataURL != "" {
		return fmt.Errorf("only one of idp_metadata_file or idp_metadata_url can be specified")
	}

	if c.SessionKeyFile == "" {
		return fmt.Errorf("session_key_file is required")
	}

	if c.SiteDomain == "" {
		return fmt.Errorf("site_domain is required")
	}

	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	if c.SignRequests && (c.CertFile == "" || c.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file are required when sign_requests is enabled")
	}

	if c.VerifyMetadataSignature && c.MetadataSigningCert == "" {
		return fmt.Errorf("metadata_signing_cert is required when verify_metadata_signature is enabled")
	}

	return nil
}

// SetDefaults applies default values to unset configuration fields.
func (c *Config) SetDefaults() {
	if c.CookieName == "" {
		c.CookieName = "dashborion_session"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 3600
	}
	if c.DefaultRedirect == "" {
		c.DefaultRedirect = "/"
	}
}

// AttributeMapping collects the configured attribute names, with
// defaults applied.
func (c *Config) AttributeMapping() domain.AttributeMapping {
	return domain.AttributeMapping{
		Email:       c.EmailAttribute,
		DisplayName: c.DisplayNameAttribute,
		Groups:      c.GroupsAttribute,
		MFA:         c.MFAAttribute,
	}.WithDefaults()
}
