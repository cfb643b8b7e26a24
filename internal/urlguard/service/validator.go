// Package service implements lexical URL validation against the configured
// trust policies.
//
// Validation is a point-in-time string check: it does not protect against
// DNS rebinding between validation and the actual network call, nor against
// a server-side redirect to a disallowed target. Callers that follow
// redirects must re-validate each hop.
package service

import (
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/mcpdeck/guard/internal/errors"
	urlguardDomain "github.com/mcpdeck/guard/internal/urlguard/domain"
)

// ipv4LiteralPattern matches four dot-separated groups of 1-3 digits.
// Octet range checks happen separately so out-of-range literals report
// ErrInvalidIP instead of falling through to domain matching.
var ipv4LiteralPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ValidatorService validates outbound URLs against trust policies built once
// at startup. It is stateless and safe for concurrent use.
type ValidatorService struct {
	external urlguardDomain.TrustPolicy
	internal urlguardDomain.TrustPolicy
	registry urlguardDomain.TrustPolicy
}

// NewValidator creates a ValidatorService with the given external and
// internal trust profiles.
func NewValidator(external, internal urlguardDomain.TrustPolicy) *ValidatorService {
	return &ValidatorService{
		external: external,
		internal: internal,
		registry: urlguardDomain.NewTrustPolicy(urlguardDomain.TrustedRegistryDomains, false),
	}
}

// Validate checks the candidate URL against the external trust profile.
func (v *ValidatorService) Validate(raw string) (*url.URL, error) {
	return v.ValidateWithPolicy(raw, v.external)
}

// ValidateInternal checks the candidate URL against the internal trust profile.
func (v *ValidatorService) ValidateInternal(raw string) (*url.URL, error) {
	return v.ValidateWithPolicy(raw, v.internal)
}

// ValidateWithPolicy runs the full validation sequence, short-circuiting on
// the first failure. Every rejection wraps one of the sentinel errors from
// the domain package and carries the offending hostname for logging.
func (v *ValidatorService) ValidateWithPolicy(
	raw string,
	policy urlguardDomain.TrustPolicy,
) (*url.URL, error) {
	// A literal null byte would also fail parsing; checking first keeps the
	// rejection reason accurate.
	if strings.ContainsRune(raw, 0) {
		return nil, apperrors.Wrap(urlguardDomain.ErrNullByteNotAllowed, "raw input")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrapf(urlguardDomain.ErrInvalidFormat, "parse: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.Wrapf(urlguardDomain.ErrInvalidProtocol, "scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())

	localhostBypass := policy.AllowLocalhost() && isLocalhostLiteral(host)
	if !localhostBypass {
		if err := v.checkHost(host, policy); err != nil {
			return nil, err
		}
	}

	if u.User != nil {
		password, _ := u.User.Password()
		if u.User.Username() != "" || password != "" {
			return nil, apperrors.Wrapf(urlguardDomain.ErrCredentialsNotAllowed, "host %q", host)
		}
	}

	if strings.Contains(raw, "%00") || strings.Contains(u.String(), "%00") {
		return nil, apperrors.Wrapf(urlguardDomain.ErrNullByteNotAllowed, "host %q", host)
	}

	return u, nil
}

// checkHost classifies the hostname as an IPv4 literal, an IPv6 literal, or
// a domain name and applies the matching policy checks.
func (v *ValidatorService) checkHost(host string, policy urlguardDomain.TrustPolicy) error {
	switch {
	case ipv4LiteralPattern.MatchString(host):
		return v.checkIPv4Literal(host, policy)
	case strings.Contains(host, ":"):
		return v.checkIPv6Literal(host, policy)
	default:
		if !policy.AllowsHost(host) {
			return apperrors.Wrapf(urlguardDomain.ErrDomainNotAllowed, "host %q", host)
		}
		return nil
	}
}

// checkIPv4Literal validates octet ranges, blocked ranges, and verbatim
// allowlist membership for dotted-quad hostnames.
func (v *ValidatorService) checkIPv4Literal(host string, policy urlguardDomain.TrustPolicy) error {
	for part := range strings.SplitSeq(host, ".") {
		octet, err := strconv.Atoi(part)
		if err != nil || octet > 255 {
			return apperrors.Wrapf(urlguardDomain.ErrInvalidIP, "host %q", host)
		}
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return apperrors.Wrapf(urlguardDomain.ErrInvalidIP, "host %q", host)
	}

	if blocked, ok := urlguardDomain.BlockedIPv4Range(addr); ok {
		if !(policy.AllowLocalhost() && urlguardDomain.IsLoopbackRange(blocked)) {
			return apperrors.Wrapf(urlguardDomain.ErrPrivateIPBlocked, "host %q", host)
		}
	}

	// IP literals are never implicitly trusted; they must appear verbatim.
	if !policy.AllowsLiteral(host) {
		return apperrors.Wrapf(urlguardDomain.ErrDomainNotAllowed, "host %q", host)
	}

	return nil
}

// checkIPv6Literal validates blocked prefixes and verbatim allowlist
// membership for IPv6 hostnames (brackets already stripped by url.Parse).
func (v *ValidatorService) checkIPv6Literal(host string, policy urlguardDomain.TrustPolicy) error {
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is6() {
		return apperrors.Wrapf(urlguardDomain.ErrInvalidFormat, "host %q", host)
	}

	if blocked, ok := urlguardDomain.BlockedIPv6Range(addr); ok {
		if !(policy.AllowLocalhost() && urlguardDomain.IsLoopbackRange(blocked)) {
			return apperrors.Wrapf(urlguardDomain.ErrPrivateIPv6Blocked, "host %q", host)
		}
	}

	if !policy.AllowsLiteral(host) {
		return apperrors.Wrapf(urlguardDomain.ErrIPv6NotAllowed, "host %q", host)
	}

	return nil
}

// Sanitize normalizes a URL for display or logging. Userinfo and fragment
// are stripped; non-http(s) or unparseable input returns ok=false.
func (v *ValidatorService) Sanitize(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	u.User = nil
	u.Fragment = ""
	return u.String(), true
}

// IsTrustedRegistry reports whether the URL's hostname belongs to a
// well-known source registry. Domain-suffix match only; no IP, credential,
// or protocol checks.
func (v *ValidatorService) IsTrustedRegistry(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return v.registry.AllowsHost(strings.ToLower(u.Hostname()))
}

// isLocalhostLiteral reports whether the hostname is one of the literal
// localhost spellings accepted by the development bypass.
func isLocalhostLiteral(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
