package ports

// SignatureVerifier validates the XML signature on an IdP metadata
// document and returns the validated bytes.
type SignatureVerifier interface {
	// Verify checks the enveloped signature against the trust anchors.
	// On success it returns the re-serialized validated element, which
	// defeats signature-wrapping tricks.
	Verify(data []byte) ([]byte, error)
}
