package dashborionauth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

// SPConfig is the static service-provider identity used to build the
// SAML descriptors. Immutable per deployment.
type SPConfig struct {
	EntityID     string
	AcsURL       *url.URL
	MetadataURL  *url.URL
	Key          *rsa.PrivateKey
	Certificate  *x509.Certificate
	SignRequests bool
	Attributes   domain.AttributeMapping
}

// SAMLService bridges to the crewjam/saml toolkit. The SP and IdP
// descriptors and the rendered SP metadata are built once at construction
// and reused read-only across requests, so no locking is needed.
type SAMLService struct {
	sp          *saml.ServiceProvider
	attributes  domain.AttributeMapping
	metadataXML []byte
}

// NewSAMLService parses the IdP metadata document and builds the service
// provider descriptor. The ACS URL is bound here; it never varies per
// request.
func NewSAMLService(cfg SPConfig, idpMetadataXML []byte) (*SAMLService, error) {
	if cfg.AcsURL == nil {
		return nil, errors.New("acs url is required")
	}

	idpMetadata, err := samlsp.ParseMetadata(idpMetadataXML)
	if err != nil {
		return nil, fmt.Errorf("parse idp metadata: %w", err)
	}

	metadataURL := cfg.MetadataURL
	if metadataURL == nil {
		metadataURL = &url.URL{
			Scheme: cfg.AcsURL.Scheme,
			Host:   cfg.AcsURL.Host,
			Path:   "/saml/metadata",
		}
	}

	sp := &saml.ServiceProvider{
		EntityID:    cfg.EntityID,
		Key:         cfg.Key,
		Certificate: cfg.Certificate,
		AcsURL:      *cfg.AcsURL,
		MetadataURL: *metadataURL,
		IDPMetadata: idpMetadata,

		// Each invocation is stateless: there is no shared request-ID
		// cache to match InResponseTo against, so IdP-initiated
		// responses are accepted and replay containment rests on the
		// assertion time window.
		AllowIDPInitiated: true,
	}

	if cfg.SignRequests {
		sp.SignatureMethod = dsig.RSASHA256SignatureMethod
	}

	// Render SP metadata once. The document is deterministic for a fixed
	// configuration, so callers always get byte-identical output.
	metadataXML, err := xml.MarshalIndent(sp.Metadata(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render sp metadata: %w", err)
	}

	return &SAMLService{
		sp:          sp,
		attributes:  cfg.Attributes,
		metadataXML: metadataXML,
	}, nil
}

// StartLogin generates an AuthnRequest and returns the IdP redirect URL
// carrying the RelayState.
func (s *SAMLService) StartLogin(relayState string) (*url.URL, error) {
	authReq, err := s.sp.MakeAuthenticationRequest(
		s.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding),
		saml.HTTPRedirectBinding,
		saml.HTTPPostBinding,
	)
	if err != nil {
		return nil, fmt.Errorf("make authn request: %w", err)
	}

	redirectURL, err := authReq.Redirect(relayState, s.sp)
	if err != nil {
		return nil, fmt.Errorf("build redirect url: %w", err)
	}

	return redirectURL, nil
}

// VerifyResponse validates a decoded SAMLResponse document and extracts
// the subject identity. Signature, time window, audience, and destination
// are all checked by the toolkit; any failure collapses into one uniform
// assertion-invalid error so the caller cannot leak which check failed.
func (s *SAMLService) VerifyResponse(responseXML []byte) (*domain.Identity, error) {
	assertion, err := s.sp.ParseXMLResponse(responseXML, nil)
	if err != nil {
		return nil, domain.AssertionError("verify response", err)
	}

	nameID := ""
	if assertion.Subject != nil && assertion.Subject.NameID != nil {
		nameID = assertion.Subject.NameID.Value
	}

	attrs := make(map[string][]string)
	for _, stmt := range assertion.AttributeStatements {
		for _, attr := range stmt.Attributes {
			// Use FriendlyName if available, otherwise use Name
			key := attr.FriendlyName
			if key == "" {
				key = attr.Name
			}
			for _, v := range attr.Values {
				attrs[key] = append(attrs[key], v.Value)
			}
		}
	}

	return domain.ExtractIdentity(s.attributes, nameID, attrs)
}

// Metadata returns the SP metadata document rendered at construction.
func (s *SAMLService) Metadata() ([]byte, error) {
	return s.metadataXML, nil
}

// LoadSessionKey reads the base64-encoded session encryption key file.
func LoadSessionKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session key file: %w", err)
	}
	return decodeSessionKey(string(data))
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS8 first (modern format), then PKCS1 (legacy RSA format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not RSA")
	}

	return rsaKey, nil
}

// LoadCertificate loads an X.509 certificate from a PEM file.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return cert, nil
}

// Interface guard
var _ ports.Authenticator = (*SAMLService)(nil)
