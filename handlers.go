package dashborionauth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/domain"
)

// maxACSBodySize bounds the SAML response body. Real responses are a few
// tens of kilobytes; anything past this is not a login.
const maxACSBodySize = 1 << 20

// handleMetadata serves the SP metadata XML. The document is rendered
// once at provision, so it is cheap to serve and safe to cache for long.
func (s *AuthGateway) handleMetadata(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		s.getLogger().Warn("metadata request rejected",
			zap.String("method", r.Method),
		)
		s.renderError(w, domain.ErrCodeClientProtocol)
		return nil
	}

	metadata, err := s.authenticator.Metadata()
	if err != nil {
		s.getLogger().Error("failed to render sp metadata", zap.Error(err))
		http.Error(w, domain.ErrCodeInternal.PublicMessage(), http.StatusInternalServerError)
		return nil
	}

	s.metrics.RecordMetadataServed()
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(metadata)
	return nil
}

// handleACS processes the SAML Response POSTed by the IdP. This is a
// one-shot transition: any failure terminates the request and the user
// restarts login by hitting a protected resource again.
func (s *AuthGateway) handleACS(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		s.failACS(w, domain.ProtocolError("method"), r.Method, 0)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxACSBodySize))
	if err != nil {
		s.failACS(w, domain.InternalError("read body", err), r.Method, 0)
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		s.failACS(w, domain.ProtocolError("empty body"), r.Method, 0)
		return nil
	}

	form, err := url.ParseQuery(string(normalizeACSBody(body)))
	if err != nil {
		s.failACS(w, domain.ProtocolError("parse form"), r.Method, len(body))
		return nil
	}

	encodedResponse := form.Get("SAMLResponse")
	if encodedResponse == "" {
		s.failACS(w, domain.ProtocolError("missing SAMLResponse"), r.Method, len(body))
		return nil
	}

	responseXML, err := decodeSAMLResponse(encodedResponse)
	if err != nil {
		s.failACS(w, domain.ProtocolError("decode SAMLResponse"), r.Method, len(body))
		return nil
	}

	relayState := domain.SanitizeReturnPath(form.Get("RelayState"), s.DefaultRedirect)

	identity, err := s.authenticator.VerifyResponse(responseXML)
	if err != nil {
		s.failACS(w, asAppError(err, "verify response"), r.Method, len(body))
		return nil
	}

	now := time.Now()
	session := &domain.Session{
		UserID:      identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Groups:      identity.Groups,
		MFAVerified: identity.MFAVerified,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.sessionTTL),
		SourceIP:    clientIP(r),
	}

	token, err := s.codec.Encode(session)
	if err != nil {
		s.failACS(w, domain.InternalError("encode session", err), r.Method, len(body))
		return nil
	}

	s.metrics.RecordACSResult("complete", true)
	s.getLogger().Info("login completed",
		zap.String("user_id", session.UserID),
		zap.String("source_ip", session.SourceIP),
		zap.Time("expires_at", session.ExpiresAt),
	)

	s.setSessionCookie(w, token)
	http.Redirect(w, r, relayState, http.StatusFound)
	return nil
}

// failACS logs the real failure with diagnostic context and sends the
// fixed generic response for the error class. No cookie is set.
func (s *AuthGateway) failACS(w http.ResponseWriter, appErr *domain.AppError, method string, bodyLen int) {
	s.metrics.RecordACSResult(appErr.Stage, false)
	s.getLogger().Warn("saml login failed",
		zap.String("stage", appErr.Stage),
		zap.String("method", method),
		zap.Int("body_length", bodyLen),
		zap.Error(appErr.Cause),
	)
	s.renderError(w, appErr.Code)
}

// renderError writes the fixed HTML error page for an error class.
// The body never reflects which specific check failed.
func (s *AuthGateway) renderError(w http.ResponseWriter, code domain.ErrorCode) {
	if s.templateRenderer == nil {
		http.Error(w, code.PublicMessage(), code.HTTPStatus())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code.HTTPStatus())
	s.templateRenderer.RenderError(w, ErrorData{
		Title:   code.Title(),
		Message: code.PublicMessage(),
	})
}

// asAppError maps any error into the taxonomy, defaulting to internal.
func asAppError(err error, stage string) *domain.AppError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.InternalError(stage, err)
}

// normalizeACSBody undoes one extra transport encoding layer if present.
// Some edges deliver the form body base64-wrapped; the unwrap is
// self-detecting rather than assuming a fixed nesting depth, and a body
// that is already a SAML form passes through untouched.
func normalizeACSBody(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if looksLikeACSForm(trimmed) {
		return trimmed
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(string(trimmed)); err == nil {
			if inner := bytes.TrimSpace(decoded); looksLikeACSForm(inner) {
				return inner
			}
		}
	}

	return trimmed
}

// looksLikeACSForm reports whether the bytes parse as a form body
// carrying a SAMLResponse field.
func looksLikeACSForm(body []byte) bool {
	return bytes.Contains(body, []byte("SAMLResponse="))
}

// decodeSAMLResponse decodes the base64 SAMLResponse form value. IdPs
// wrap the XML at various line lengths, so whitespace is stripped first.
func decodeSAMLResponse(encoded string) ([]byte, error) {
	compact := bytes.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, []byte(encoded))

	decoded, err := base64.StdEncoding.DecodeString(string(compact))
	if err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(string(compact))
}
