package service

import (
	"context"
	"net/url"
	"time"

	"github.com/mcpdeck/guard/internal/metrics"
	urlguardDomain "github.com/mcpdeck/guard/internal/urlguard/domain"
)

// validatorWithMetrics decorates URLValidator with metrics instrumentation.
type validatorWithMetrics struct {
	next    URLValidator
	metrics metrics.BusinessMetrics
}

// NewValidatorWithMetrics wraps a URLValidator with metrics recording.
func NewValidatorWithMetrics(validator URLValidator, m metrics.BusinessMetrics) URLValidator {
	return &validatorWithMetrics{
		next:    validator,
		metrics: m,
	}
}

// Validate records metrics for external-profile validations.
func (v *validatorWithMetrics) Validate(raw string) (*url.URL, error) {
	return v.record("url_validate", func() (*url.URL, error) {
		return v.next.Validate(raw)
	})
}

// ValidateWithPolicy records metrics for explicit-policy validations.
func (v *validatorWithMetrics) ValidateWithPolicy(
	raw string,
	policy urlguardDomain.TrustPolicy,
) (*url.URL, error) {
	return v.record("url_validate_policy", func() (*url.URL, error) {
		return v.next.ValidateWithPolicy(raw, policy)
	})
}

// ValidateInternal records metrics for internal-profile validations.
func (v *validatorWithMetrics) ValidateInternal(raw string) (*url.URL, error) {
	return v.record("url_validate_internal", func() (*url.URL, error) {
		return v.next.ValidateInternal(raw)
	})
}

// Sanitize passes through; normalization failures are not policy outcomes.
func (v *validatorWithMetrics) Sanitize(raw string) (string, bool) {
	return v.next.Sanitize(raw)
}

// IsTrustedRegistry passes through; membership tests are informational.
func (v *validatorWithMetrics) IsTrustedRegistry(raw string) bool {
	return v.next.IsTrustedRegistry(raw)
}

// record runs fn and records the operation count and duration with the
// outcome status.
func (v *validatorWithMetrics) record(
	operation string,
	fn func() (*url.URL, error),
) (*url.URL, error) {
	ctx := context.Background()
	start := time.Now()
	u, err := fn()

	status := "success"
	if err != nil {
		status = "rejected"
	}

	v.metrics.RecordOperation(ctx, "urlguard", operation, status)
	v.metrics.RecordDuration(ctx, "urlguard", operation, time.Since(start), status)

	return u, err
}
