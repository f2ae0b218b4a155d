package domain

import (
	"net/url"
	"strings"
)

// SanitizeReturnPath ensures a RelayState value is a safe same-origin
// path. Anything absolute, protocol-relative, or otherwise suspicious is
// replaced by the configured fallback. This prevents the RelayState from
// being used as an open redirect.
func SanitizeReturnPath(relayState, fallback string) string {
	if fallback == "" {
		fallback = "/"
	}

	relayState = strings.TrimSpace(relayState)
	if relayState == "" {
		return fallback
	}

	// Must be a relative path. Protocol-relative URLs (//evil.example)
	// are rejected here too.
	if !strings.HasPrefix(relayState, "/") || strings.HasPrefix(relayState, "//") {
		return fallback
	}

	// Browsers normalize backslashes to forward slashes, so /\evil.example
	// redirects cross-origin as //evil.example.
	if strings.ContainsRune(relayState, '\\') {
		return fallback
	}

	parsed, err := url.Parse(relayState)
	if err != nil {
		return fallback
	}

	// A scheme (http:, javascript:, data:) or host means cross-origin.
	if parsed.Scheme != "" || parsed.Host != "" {
		return fallback
	}

	// Newlines would allow header injection through the Location header.
	if strings.ContainsAny(relayState, "\r\n") {
		return fallback
	}

	// Re-check after percent-decoding so %2F%2F or %5C cannot smuggle a
	// protocol-relative URL through.
	decoded, err := url.QueryUnescape(relayState)
	if err != nil {
		return fallback
	}
	if strings.HasPrefix(decoded, "//") || strings.ContainsRune(decoded, '\\') {
		return fallback
	}

	return relayState
}
