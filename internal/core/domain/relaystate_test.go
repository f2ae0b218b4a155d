//go:build unit

package domain

import "testing"

// TestSanitizeReturnPath covers the same-origin allow-list behavior.
func TestSanitizeReturnPath(t *testing.T) {
	tests := []struct {
		name       string
		relayState string
		fallback   string
		want       string
	}{
		{"empty", "", "/home", "/home"},
		{"whitespace", "   ", "/home", "/home"},
		{"simple path", "/dashboard", "/home", "/dashboard"},
		{"path with query", "/reports?range=7d&tz=UTC", "/home", "/reports?range=7d&tz=UTC"},
		{"absolute url", "https://evil.example/phish", "/home", "/home"},
		{"protocol relative", "//evil.example/phish", "/home", "/home"},
		{"javascript scheme", "javascript:alert(1)", "/home", "/home"},
		{"no leading slash", "dashboard", "/home", "/home"},
		{"encoded protocol relative", "%2F%2Fevil.example", "/home", "/home"},
		{"backslash host", `/\evil.example`, "/home", "/home"},
		{"double backslash host", `/\\evil.example/phish`, "/home", "/home"},
		{"embedded backslash", `/ok\..\evil`, "/home", "/home"},
		{"encoded backslash", "/%5Cevil.example", "/home", "/home"},
		{"newline injection", "/ok\r\nSet-Cookie: x=y", "/home", "/home"},
		{"empty fallback defaults to root", "https://evil.example", "", "/"},
	}

	for _, tc := range tests {
		if got := SanitizeReturnPath(tc.relayState, tc.fallback); got != tc.want {
			t.Errorf("%s: SanitizeReturnPath(%q) = %q, want %q", tc.name, tc.relayState, got, tc.want)
		}
	}
}
