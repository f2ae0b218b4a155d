// Package dashborionauth provides a Caddy v2 handler module that gates
// the Dashborion dashboard behind a SAML2 Identity Provider. The session
// is a self-contained encrypted cookie; there is no server-side session
// store, so every request is verified independently.
package dashborionauth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/KamorionLabs/dashborion-sub000/internal/adapters/driven/metrics"
	"github.com/KamorionLabs/dashborion-sub000/internal/adapters/driven/sessioncodec"
	"github.com/KamorionLabs/dashborion-sub000/internal/adapters/driven/signature"
	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

const Version = "0.3.0"

const (
	acsPath      = "/saml/acs"
	metadataPath = "/saml/metadata"
)

func init() {
	caddy.RegisterModule(AuthGateway{})
	httpcaddyfile.RegisterHandlerDirective("dashborion_auth", parseCaddyfile)
}

// AuthGateway is a Caddy HTTP handler module that enforces a valid
// session on every request and bridges to a SAML2 IdP when none exists.
type AuthGateway struct {
	// Configuration embedded directly
	Config

	// Runtime state (not serialized)
	authenticator    ports.Authenticator
	codec            ports.SessionCodec
	metrics          ports.MetricsRecorder
	templateRenderer *TemplateRenderer
	sessionTTL       time.Duration
	logger           *zap.Logger
}

// CaddyModule returns the Caddy module information.
func (AuthGateway) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.dashborion_auth",
		New: func() caddy.Module { return new(AuthGateway) },
	}
}

// Provision sets up the module. Everything built here is immutable for
// the process lifetime and shared read-only across requests.
func (s *AuthGateway) Provision(ctx caddy.Context) error {
	s.logger = ctx.Logger()
	s.logger.Debug("provisioning dashborion auth gateway")

	s.Config.SetDefaults()
	s.sessionTTL = time.Duration(s.SessionTTL) * time.Second

	// Session codec from the configured symmetric key.
	key, err := LoadSessionKey(s.SessionKeyFile)
	if err != nil {
		return fmt.Errorf("load session key: %w", err)
	}
	codec, err := sessioncodec.New(key)
	if err != nil {
		return fmt.Errorf("init session codec: %w", err)
	}
	s.codec = codec

	// IdP metadata document, read once. A broken document fails the
	// provision rather than the first login.
	idpMetadata, err := s.loadIdPMetadata()
	if err != nil {
		return fmt.Errorf("load idp metadata: %w", err)
	}

	if s.VerifyMetadataSignature {
		certs, err := signature.LoadSigningCertificates(s.MetadataSigningCert)
		if err != nil {
			return fmt.Errorf("load metadata signing certificate: %w", err)
		}
		verifier := signature.NewXMLDsigVerifier(certs, s.logger)
		idpMetadata, err = verifier.Verify(idpMetadata)
		if err != nil {
			return fmt.Errorf("verify idp metadata signature: %w", err)
		}
	}

	spConfig := SPConfig{
		EntityID:     s.EntityID,
		AcsURL:       s.siteURL(acsPath),
		MetadataURL:  s.siteURL(metadataPath),
		SignRequests: s.SignRequests,
		Attributes:   s.Config.AttributeMapping(),
	}

	if s.KeyFile != "" {
		spConfig.Key, err = LoadPrivateKey(s.KeyFile)
		if err != nil {
			return fmt.Errorf("load SP private key: %w", err)
		}
	}
	if s.CertFile != "" {
		spConfig.Certificate, err = LoadCertificate(s.CertFile)
		if err != nil {
			return fmt.Errorf("load SP certificate: %w", err)
		}
	}

	service, err := NewSAMLService(spConfig, idpMetadata)
	if err != nil {
		return fmt.Errorf("init saml service: %w", err)
	}
	s.authenticator = service

	if s.MetricsEnabled {
		s.metrics = metrics.NewPrometheusRecorder()
	} else {
		s.metrics = metrics.NewNoopRecorder()
	}

	renderer, err := NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load embedded templates: %w", err)
	}
	s.templateRenderer = renderer

	s.logger.Info("dashborion auth gateway provisioned",
		zap.String("entity_id", s.EntityID),
		zap.String("site_domain", s.SiteDomain),
		zap.Duration("session_ttl", s.sessionTTL),
		zap.String("version", Version),
	)

	return nil
}

// Validate ensures the module's configuration is valid.
func (s *AuthGateway) Validate() error {
	return s.Config.Validate()
}

// ServeHTTP implements caddyhttp.MiddlewareHandler. The SAML endpoints
// are served directly; every other request must carry a valid session
// cookie or is redirected to the IdP.
func (s *AuthGateway) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	switch r.URL.Path {
	case acsPath:
		return s.handleACS(w, r)
	case metadataPath:
		return s.handleMetadata(w, r)
	}

	cookie, err := r.Cookie(s.CookieName)
	if err != nil || cookie.Value == "" {
		s.redirectToIdP(w, r)
		return nil
	}

	session, err := s.codec.Decode(cookie.Value)
	if err != nil {
		// The reason never reaches the client; a rejected cookie just
		// restarts the login flow.
		s.metrics.RecordSessionValidation(false)
		s.getLogger().Debug("session cookie rejected",
			zap.String("path", r.URL.Path),
		)
		s.redirectToIdP(w, r)
		return nil
	}
	s.metrics.RecordSessionValidation(true)

	// The request passes through unchanged on the wire; the session is
	// available to downstream handlers via context only.
	ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
	return next.ServeHTTP(w, r.WithContext(ctx))
}

// redirectToIdP sends an unauthenticated request to the IdP, preserving
// the originally requested path and query as RelayState.
func (s *AuthGateway) redirectToIdP(w http.ResponseWriter, r *http.Request) {
	relayState := r.URL.RequestURI()

	redirectURL, err := s.authenticator.StartLogin(relayState)
	if err != nil {
		s.getLogger().Error("failed to start login",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.renderError(w, domain.ErrCodeInternal)
		return
	}

	s.metrics.RecordLoginRedirect()
	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}

// sessionContextKey is the context key for the decoded session.
type sessionContextKey struct{}

// SessionFromContext returns the session attached to a request that
// passed the gateway, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*domain.Session)
	return session
}

// siteURL builds an absolute URL on the configured edge domain.
func (s *AuthGateway) siteURL(path string) *url.URL {
	return &url.URL{
		Scheme: "https",
		Host:   s.SiteDomain,
		Path:   path,
	}
}

// loadIdPMetadata reads the IdP metadata document from the configured
// source. URL sources are fetched exactly once, at provision.
func (s *AuthGateway) loadIdPMetadata() ([]byte, error) {
	if s.IdPMetadataFile != "" {
		return readFile(s.IdPMetadataFile)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(s.IdPMetadataURL)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// getLogger returns the logger, or a no-op logger if not set.
// This allows tests to run without calling Provision().
func (s *AuthGateway) getLogger() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.NewNop()
}

// setSessionCookie sets the session cookie on the response.
func (s *AuthGateway) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.CookieDomain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.SessionTTL,
	})
}

// clientIP extracts the client address, preferring the first
// X-Forwarded-For hop set by the edge.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// decodeSessionKey decodes a base64 key in either the standard or URL
// alphabet, padded or not.
func decodeSessionKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	return nil, errors.New("session key is not valid base64")
}

// readFile wraps os.ReadFile with a consistent error message.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// SetAuthenticator sets the authenticator. For testing purposes.
func (s *AuthGateway) SetAuthenticator(a ports.Authenticator) {
	s.authenticator = a
}

// SetSessionCodec sets the session codec. For testing purposes.
func (s *AuthGateway) SetSessionCodec(c ports.SessionCodec) {
	s.codec = c
}

// SetMetricsRecorder sets the metrics recorder. For testing purposes.
func (s *AuthGateway) SetMetricsRecorder(m ports.MetricsRecorder) {
	s.metrics = m
}

// SetTemplateRenderer sets the template renderer. For testing purposes.
func (s *AuthGateway) SetTemplateRenderer(r *TemplateRenderer) {
	s.templateRenderer = r
}

// SetSessionTTL sets the session duration. For testing purposes.
func (s *AuthGateway) SetSessionTTL(d time.Duration) {
	s.sessionTTL = d
}

// Interface guards
var (
	_ caddy.Module                = (*AuthGateway)(nil)
	_ caddy.Provisioner           = (*AuthGateway)(nil)
	_ caddy.Validator             = (*AuthGateway)(nil)
	_ caddyhttp.MiddlewareHandler = (*AuthGateway)(nil)
	_ caddyfile.Unmarshaler       = (*AuthGateway)(nil)
)
