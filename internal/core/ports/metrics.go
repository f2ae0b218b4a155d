package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (Prometheus for production, noop for
// disabled/testing).
type MetricsRecorder interface {
	// RecordLoginRedirect records an unauthenticated request being sent
	// to the IdP.
	RecordLoginRedirect()

	// RecordACSResult records the outcome of an assertion-consumer
	// request. Stage names the processing step that decided the outcome.
	RecordACSResult(stage string, success bool)

	// RecordSessionValidation records a cookie decode attempt on a
	// protected request.
	RecordSessionValidation(valid bool)

	// RecordMetadataServed records a metadata document response.
	RecordMetadataServed()
}
