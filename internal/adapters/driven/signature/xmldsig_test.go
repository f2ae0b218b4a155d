//go:build unit

package signature

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap/zaptest"
)

const testMetadata = `<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID="https://idp.example.com"><IDPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol"></IDPSSODescriptor></EntityDescriptor>`

func generateSigner(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Federation Signer"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	return key, cert
}

func signMetadata(t *testing.T, key *rsa.PrivateKey, cert *x509.Certificate, metadata []byte) []byte {
	t.Helper()

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(metadata); err != nil {
		t.Fatalf("parse metadata: %v", err)
	}

	keyStore := dsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
	})

	ctx := dsig.NewDefaultSigningContext(keyStore)
	ctx.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	signed, err := ctx.SignEnveloped(doc.Root())
	if err != nil {
		t.Fatalf("sign metadata: %v", err)
	}

	doc.SetRoot(signed)
	out, err := doc.WriteToBytes()
	if err != nil {
		t.Fatalf("serialize signed metadata: %v", err)
	}
	return out
}

// TestXMLDsigVerifier_ValidSignature verifies a correctly signed document
// passes and the validated bytes still carry the entity ID.
func TestXMLDsigVerifier_ValidSignature(t *testing.T) {
	key, cert := generateSigner(t)
	signed := signMetadata(t, key, cert, []byte(testMetadata))

	verifier := NewXMLDsigVerifier([]*x509.Certificate{cert}, zaptest.NewLogger(t))

	validated, err := verifier.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}

	if !bytes.Contains(validated, []byte("https://idp.example.com")) {
		t.Error("validated metadata lost the entity ID")
	}
}

// TestXMLDsigVerifier_TamperedDocument verifies a modified document fails.
func TestXMLDsigVerifier_TamperedDocument(t *testing.T) {
	key, cert := generateSigner(t)
	signed := signMetadata(t, key, cert, []byte(testMetadata))

	tampered := bytes.Replace(signed, []byte("idp.example.com"), []byte("evil.example.com"), 1)

	verifier := NewXMLDsigVerifier([]*x509.Certificate{cert}, nil)
	if _, err := verifier.Verify(tampered); err == nil {
		t.Error("Verify() should fail for tampered document")
	}
}

// TestXMLDsigVerifier_UntrustedSigner verifies a signature from an
// unknown certificate fails.
func TestXMLDsigVerifier_UntrustedSigner(t *testing.T) {
	key, cert := generateSigner(t)
	signed := signMetadata(t, key, cert, []byte(testMetadata))

	_, otherCert := generateSigner(t)

	verifier := NewXMLDsigVerifier([]*x509.Certificate{otherCert}, nil)
	if _, err := verifier.Verify(signed); err == nil {
		t.Error("Verify() should fail for untrusted signer")
	}
}

// TestXMLDsigVerifier_UnsignedDocument verifies an unsigned document fails.
func TestXMLDsigVerifier_UnsignedDocument(t *testing.T) {
	_, cert := generateSigner(t)

	verifier := NewXMLDsigVerifier([]*x509.Certificate{cert}, nil)
	if _, err := verifier.Verify([]byte(testMetadata)); err == nil {
		t.Error("Verify() should fail for unsigned document")
	}
}

// TestXMLDsigVerifier_GarbageInput verifies non-XML input fails cleanly.
func TestXMLDsigVerifier_GarbageInput(t *testing.T) {
	_, cert := generateSigner(t)

	verifier := NewXMLDsigVerifier([]*x509.Certificate{cert}, nil)
	if _, err := verifier.Verify([]byte("not xml at all")); err == nil {
		t.Error("Verify() should fail for garbage input")
	}
}
