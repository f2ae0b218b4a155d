// Command devidp runs a standalone SAML Identity Provider for local
// development of the Dashborion auth gateway.
//
// Usage: go run ./cmd/devidp
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/crewjam/saml/samlidp"
)

func main() {
	port := flag.Int("port", 8443, "Port to listen on")
	spMetadataURL := flag.String("sp-metadata", "https://dash.localhost/saml/metadata", "Gateway metadata URL to register")
	flag.Parse()

	key, cert, err := selfSignedCert()
	if err != nil {
		log.Fatalf("Failed to generate certificate: %v", err)
	}

	store := &samlidp.MemoryStore{}

	baseURL, _ := url.Parse(fmt.Sprintf("http://localhost:%d", *port))

	idpServer, err := samlidp.New(samlidp.Options{
		URL:         *baseURL,
		Key:         key,
		Certificate: cert,
		Store:       store,
	})
	if err != nil {
		log.Fatalf("Failed to create IdP server: %v", err)
	}

	// User added over HTTP so the password gets hashed.
	go func() {
		time.Sleep(100 * time.Millisecond)
		if err := addUser(fmt.Sprintf("http://localhost:%d", *port), "devuser", "password", []string{"admins"}); err != nil {
			log.Fatalf("Failed to add dev user: %v", err)
		}
		log.Println("Added dev user: devuser / password (groups: admins)")
	}()

	go func() {
		time.Sleep(2 * time.Second)
		if err := registerGateway(*spMetadataURL, fmt.Sprintf("http://localhost:%d", *port)); err != nil {
			log.Printf("Warning: failed to register gateway from %s: %v", *spMetadataURL, err)
			log.Println("Start the gateway and register it manually with a PUT to /services/{entityID}")
		} else {
			log.Printf("Registered gateway from %s", *spMetadataURL)
		}
	}()

	log.Printf("Dev IdP starting on http://localhost:%d", *port)
	log.Printf("  Metadata: http://localhost:%d/metadata", *port)
	log.Printf("  SSO:      http://localhost:%d/sso", *port)
	log.Println()
	log.Println("Credentials: devuser / password")

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), idpServer); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func addUser(baseURL, username, password string, groups []string) error {
	user := samlidp.User{
		Name:              username,
		PlaintextPassword: &password,
		Email:             username + "@example.com",
		CommonName:        username,
		GivenName:         username,
		Surname:           "Dev",
		Groups:            groups,
	}

	body, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, baseURL+"/users/"+username, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("put user status: %d", resp.StatusCode)
	}

	return nil
}

func registerGateway(metadataURL, idpBaseURL string) error {
	resp, err := http.Get(metadataURL)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata response status: %d", resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	var entityDescriptor struct {
		EntityID string `xml:"entityID,attr"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &entityDescriptor); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut,
		idpBaseURL+"/services/"+url.PathEscape(entityDescriptor.EntityID),
		bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	client := &http.Client{Timeout: 5 * time.Second}
	putResp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("register gateway: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode >= 400 {
		return fmt.Errorf("register gateway status: %d", putResp.StatusCode)
	}

	return nil
}

func selfSignedCert() (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Dashborion Dev IdP",
			Organization: []string{"Dashborion"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
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
