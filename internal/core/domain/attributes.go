package domain

import "strings"

// Default SAML attribute names recognized when no mapping is configured.
const (
	DefaultEmailAttribute       = "email"
	DefaultDisplayNameAttribute = "displayName"
	DefaultGroupsAttribute      = "groups"
	DefaultMFAAttribute         = "mfaVerified"
)

// AttributeMapping names the SAML attributes that carry each identity
// field. The mapping is deployment configuration: different IdPs ship the
// same facts under different attribute names or OIDs.
type AttributeMapping struct {
	Email       string
	DisplayName string
	Groups      string
	MFA         string
}

// WithDefaults fills unset mapping entries with the default names.
func (m AttributeMapping) WithDefaults() AttributeMapping {
	if m.Email == "" {
		m.Email = DefaultEmailAttribute
	}
	if m.DisplayName == "" {
		m.DisplayName = DefaultDisplayNameAttribute
	}
	if m.Groups == "" {
		m.Groups = DefaultGroupsAttribute
	}
	if m.MFA == "" {
		m.MFA = DefaultMFAAttribute
	}
	return m
}

// Identity is the verified subject extracted from a SAML assertion.
// Fields are only ever populated after signature and condition checks
// have passed.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Groups      []string
	MFAVerified bool
}

// ExtractIdentity builds an Identity from the assertion NameID and the
// attribute statements, keyed by the configured mapping. Attribute keys
// are matched case-insensitively. Email is required; everything else is
// optional.
func ExtractIdentity(m AttributeMapping, nameID string, attrs map[string][]string) (*Identity, error) {
	m = m.WithDefaults()

	id := &Identity{UserID: nameID}

	for key, values := range attrs {
		if len(values) == 0 {
			continue
		}
		switch {
		case strings.EqualFold(key, m.Email):
			id.Email = values[0]
		case strings.EqualFold(key, m.DisplayName):
			id.DisplayName = values[0]
		case strings.EqualFold(key, m.Groups):
			id.Groups = append(id.Groups, values...)
		case strings.EqualFold(key, m.MFA):
			id.MFAVerified = isAffirmative(values[0])
		}
	}

	if id.Email == "" {
		return nil, AssertionError("attribute email missing", nil)
	}
	if id.UserID == "" {
		id.UserID = id.Email
	}

	return id, nil
}

// isAffirmative interprets the loose boolean encodings IdPs use for
// MFA flags.
func isAffirmative(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
