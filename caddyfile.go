package dashborionauth

import (
	"strconv"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

// parseCaddyfile sets up the handler from Caddyfile tokens.
//
// Syntax:
//
//	dashborion_auth {
//	    entity_id <entity_id>
//	    idp_metadata_file <path>
//	    idp_metadata_url <url>
//	    session_key_file <path>
//	    cert_file <path>
//	    key_file <path>
//	    sign_requests
//	    site_domain <host>
//	    cookie_name <name>
//	    cookie_domain <domain>
//	    session_ttl <seconds>
//	    default_redirect <path>
//	    email_attribute <name>
//	    display_name_attribute <name>
//	    groups_attribute <name>
//	    mfa_attribute <name>
//	    verify_metadata_signature
//	    metadata_signing_cert <path>
//	    metrics enabled|disabled
//	}
func parseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var s AuthGateway
	err := s.UnmarshalCaddyfile(h.Dispenser)
	return &s, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
func (s *AuthGateway) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // consume directive name

	for d.NextBlock(0) {
		switch d.Val() {
		case "entity_id":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.EntityID = d.Val()

		case "idp_metadata_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.IdPMetadataFile = d.Val()

		case "idp_metadata_url":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.IdPMetadataURL = d.Val()

		case "session_key_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.SessionKeyFile = d.Val()

		case "cert_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.CertFile = d.Val()

		case "key_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.KeyFile = d.Val()

		case "sign_requests":
			s.SignRequests = true

		case "site_domain":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.SiteDomain = d.Val()

		case "cookie_name":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.CookieName = d.Val()

		case "cookie_domain":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.CookieDomain = d.Val()

		case "session_ttl":
			if !d.NextArg() {
				return d.ArgErr()
			}
			ttl, err := strconv.Atoi(d.Val())
			if err != nil {
				return d.Errf("session_ttl must be an integer number of seconds, got %q", d.Val())
			}
			s.SessionTTL = ttl

		case "default_redirect":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.DefaultRedirect = d.Val()

		case "email_attribute":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.EmailAttribute = d.Val()

		case "display_name_attribute":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.DisplayNameAttribute = d.Val()

		case "groups_attribute":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.GroupsAttribute = d.Val()

		case "mfa_attribute":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.MFAAttribute = d.Val()

		case "verify_metadata_signature":
			s.VerifyMetadataSignature = true

		case "metadata_signing_cert":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.MetadataSigningCert = d.Val()

		case "metrics":
			if !d.NextArg() {
				return d.ArgErr()
			}
			switch d.Val() {
			case "enabled", "on":
				s.MetricsEnabled = true
			case "disabled", "off":
				s.MetricsEnabled = false
			default:
				return d.Errf("metrics must be 'enabled' or 'disabled', got %q", d.Val())
			}

		default:
			return d.Errf("unrecognized subdirective: %s", d.Val())
		}
	}

	s.Config.SetDefaults()
	return nil
}
