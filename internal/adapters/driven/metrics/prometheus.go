package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KamorionLabs/dashborion-sub000/internal/core/ports"
)

// PrometheusRecorder records gateway metrics using Prometheus.
type PrometheusRecorder struct {
	loginRedirectsTotal     prometheus.Counter
	acsRequestsTotal        *prometheus.CounterVec
	sessionValidationsTotal *prometheus.CounterVec
	metadataRequestsTotal   prometheus.Counter
}

// NewPrometheusRecorder creates a recorder registered on the default
// Prometheus registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return NewPrometheusRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusRecorderWithRegistry creates a recorder with a custom
// registry. Use this for testing.
func NewPrometheusRecorderWithRegistry(reg prometheus.Registerer) *PrometheusRecorder {
	loginRedirectsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashborion_auth_login_redirects_total",
		Help: "Total unauthenticated requests redirected to the IdP",
	})

	acsRequestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashborion_auth_acs_requests_total",
		Help: "Total assertion consumer service requests",
	}, []string{"stage", "result"})

	sessionValidationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashborion_auth_session_validations_total",
		Help: "Total session cookie validation attempts",
	}, []string{"result"})

	metadataRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashborion_auth_metadata_requests_total",
		Help: "Total SP metadata documents served",
	})

	reg.MustRegister(
		loginRedirectsTotal,
		acsRequestsTotal,
		sessionValidationsTotal,
		metadataRequestsTotal,
	)

	return &PrometheusRecorder{
		loginRedirectsTotal:     loginRedirectsTotal,
		acsRequestsTotal:        acsRequestsTotal,
		sessionValidationsTotal: sessionValidationsTotal,
		metadataRequestsTotal:   metadataRequestsTotal,
	}
}

// RecordLoginRedirect records a redirect to the IdP.
func (p *PrometheusRecorder) RecordLoginRedirect() {
	p.loginRedirectsTotal.Inc()
}

// RecordACSResult records the outcome of an ACS request.
func (p *PrometheusRecorder) RecordACSResult(stage string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.acsRequestsTotal.WithLabelValues(stage, result).Inc()
}

// RecordSessionValidation records a session decode attempt.
func (p *PrometheusRecorder) RecordSessionValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	p.sessionValidationsTotal.WithLabelValues(result).Inc()
}

// RecordMetadataServed records a metadata response.
func (p *PrometheusRecorder) RecordMetadataServed() {
	p.metadataRequestsTotal.Inc()
}

// Interface guard
var _ ports.MetricsRecorder = (*PrometheusRecorder)(nil)
