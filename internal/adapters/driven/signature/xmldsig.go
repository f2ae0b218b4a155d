// Package signature verifies XML-DSig signatures on IdP metadata
// documents at cold start.
package signature

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

// XMLDsigVerifier verifies XML signatures using goxmldsig.
// It validates enveloped signatures against trusted certificates.
type XMLDsigVerifier struct {
	certStore dsig.X509CertificateStore
	certs     []*x509.Certificate
	logger    *zap.Logger
}

// NewXMLDsigVerifier creates a verifier with the given trust anchor
// certificates. Multiple certificates support signer rollover.
func NewXMLDsigVerifier(certs []*x509.Certificate, logger *zap.Logger) *XMLDsigVerifier {
	return &XMLDsigVerifier{
		certStore: &dsig.MemoryX509CertificateStore{Roots: certs},
		certs:     certs,
		logger:    logger,
	}
}

// Verify validates the XML signature on a metadata document and returns
// the validated bytes. Returns an error if the signature is invalid,
// missing, or cannot be verified.
func (v *XMLDsigVerifier) Verify(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse metadata XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty XML document")
	}

	ctx := dsig.NewDefaultValidationContext(v.certStore)

	validated, err := ctx.Validate(root)
	if err != nil {
		return nil, fmt.Errorf("metadata signature verification failed: %w", err)
	}

	if v.logger != nil && len(v.certs) > 0 {
		cert := v.certs[0]
		v.logger.Info("idp metadata signature verified",
			zap.String("cert_subject", cert.Subject.String()),
			zap.Time("cert_expiry", cert.NotAfter),
		)
	}

	// Re-serialize the validated element to prevent signature wrapping attacks
	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validated)
	result, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize validated metadata: %w", err)
	}
	return result, nil
}

// LoadSigningCertificates loads one or more PEM certificates from a file.
func LoadSigningCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	var certs []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, errors.New("no certificates found in PEM file")
	}
	return certs, nil
}

// Interface guard
var _ ports.SignatureVerifier = (*XMLDsigVerifier)(nil)
