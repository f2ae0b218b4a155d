// Package idp runs an in-process SAML Identity Provider for integration
// tests, wrapping crewjam/saml/samlidp.
package idp

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/crewjam/saml/samlidp"
)

// TestIdP is an in-process Identity Provider backed by httptest.
type TestIdP struct {
	t      testing.TB
	server *httptest.Server
	idp    *samlidp.Server
	store  *samlidp.MemoryStore
}

// New starts a test IdP with a fresh self-signed certificate. Call
// Close when done.
func New(t testing.TB) *TestIdP {
	t.Helper()

	key, cert, err := selfSignedCert()
	if err != nil {
		t.Fatalf("generate idp certificate: %v", err)
	}

	store := &samlidp.MemoryStore{}

	// The IdP needs its own base URL before it can be constructed, so
	// the httptest server starts first and delegates once idp is set.
	var tidp *TestIdP
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tidp != nil && tidp.idp != nil {
			tidp.idp.ServeHTTP(w, r)
		}
	}))

	baseURL, err := url.Parse(ts.URL)
	if err != nil {
		ts.Close()
		t.Fatalf("parse test server url: %v", err)
	}

	idpServer, err := samlidp.New(samlidp.Options{
		URL:         *baseURL,
		Key:         key,
		Certificate: cert,
		Store:       store,
	})
	if err != nil {
		ts.Close()
		t.Fatalf("create idp server: %v", err)
	}

	tidp = &TestIdP{t: t, server: ts, idp: idpServer, store: store}
	return tidp
}

// Close shuts down the IdP server.
func (idp *TestIdP) Close() {
	if idp.server != nil {
		idp.server.Close()
	}
}

// BaseURL returns the base URL of the IdP.
func (idp *TestIdP) BaseURL() string {
	return idp.server.URL
}

// SSOURL returns the SSO endpoint URL.
func (idp *TestIdP) SSOURL() string {
	return idp.server.URL + "/sso"
}

// MetadataXML fetches the IdP metadata document.
func (idp *TestIdP) MetadataXML() []byte {
	idp.t.Helper()

	resp, err := http.Get(idp.server.URL + "/metadata")
	if err != nil {
		idp.t.Fatalf("fetch idp metadata: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		idp.t.Fatalf("fetch idp metadata: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		idp.t.Fatalf("read idp metadata: %v", err)
	}
	return data
}

// AddUser creates a user with the given group memberships.
func (idp *TestIdP) AddUser(username, password string, groups ...string) {
	idp.t.Helper()

	user := samlidp.User{
		Name:              username,
		PlaintextPassword: &password,
		Email:             username + "@example.com",
		CommonName:        username,
		GivenName:         username,
		Surname:           "Test",
		Groups:            groups,
	}

	if err := idp.store.Put("/users/"+username, user); err != nil {
		idp.t.Fatalf("add user %s: %v", username, err)
	}
}

// RegisterSP registers a service provider with the IdP from its raw
// metadata document.
func (idp *TestIdP) RegisterSP(entityID string, metadata []byte) {
	idp.t.Helper()

	req, err := http.NewRequest(http.MethodPut,
		idp.server.URL+"/services/"+url.PathEscape(entityID),
		bytes.NewReader(metadata))
	if err != nil {
		idp.t.Fatalf("create register request: %v", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		idp.t.Fatalf("register sp: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		idp.t.Fatalf("register sp: status %d", resp.StatusCode)
	}
}

// CertificatePEM returns the IdP signing certificate in PEM form.
func (idp *TestIdP) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: idp.idp.IDP.Certificate.Raw,
	})
}

func selfSignedCert() (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Dashborion Test IdP",
			Organization: []string{"Dashborion"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}

	return key, cert, nil
}
