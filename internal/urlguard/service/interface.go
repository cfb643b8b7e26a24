package service

import (
	"net/url"

	urlguardDomain "github.com/mcpdeck/guard/internal/urlguard/domain"
)

// URLValidator is the gate every outbound URL passes before the application
// fetches it on a caller's behalf. Implementations are purely lexical: no
// DNS resolution, no network I/O.
type URLValidator interface {
	// Validate checks the candidate URL against the external trust profile.
	Validate(raw string) (*url.URL, error)

	// ValidateWithPolicy checks the candidate URL against an explicit policy.
	ValidateWithPolicy(raw string, policy urlguardDomain.TrustPolicy) (*url.URL, error)

	// ValidateInternal checks the candidate URL against the internal trust
	// profile (registry and staging hosts only).
	ValidateInternal(raw string) (*url.URL, error)

	// Sanitize normalizes a URL for display or logging, stripping userinfo
	// and fragment. The boolean is false when the input is unusable.
	Sanitize(raw string) (string, bool)

	// IsTrustedRegistry reports whether the URL points at a well-known source
	// registry. Informational only; never use as a security gate.
	IsTrustedRegistry(raw string) bool
}
