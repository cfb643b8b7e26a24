// Package domain defines the trust policy value objects and error taxonomy
// for outbound URL validation.
package domain

import (
	"net/netip"
	"sort"
	"strings"
)

// Default allowlists for the two named trust profiles. The internal profile
// must stay a subset of the external one; the policy tests enforce this.
var (
	// externalDefaultDomains is the broad allowlist used when fetching
	// tenant-supplied URLs: our own domains plus well-known package and
	// source-control registries.
	externalDefaultDomains = []string{
		"mcpdeck.com",
		"registry.mcpdeck.com",
		"staging.mcpdeck.com",
		"github.com",
		"gitlab.com",
		"bitbucket.org",
		"registry.npmjs.org",
		"pypi.org",
	}

	// internalDefaultDomains is the narrow allowlist for calls to our own
	// registry and staging hosts.
	internalDefaultDomains = []string{
		"registry.mcpdeck.com",
		"staging.mcpdeck.com",
	}

	// TrustedRegistryDomains is the fixed set of known source registries used
	// by IsTrustedRegistry. Informational only, never a security gate.
	TrustedRegistryDomains = []string{
		"github.com",
		"gitlab.com",
		"bitbucket.org",
		"registry.npmjs.org",
		"pypi.org",
	}
)

// blockedIPv4Ranges are the IPv4 ranges never reachable through the guard.
var blockedIPv4Ranges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),     // private
	netip.MustParsePrefix("172.16.0.0/12"),  // private
	netip.MustParsePrefix("192.168.0.0/16"), // private
	netip.MustParsePrefix("169.254.0.0/16"), // link-local
	netip.MustParsePrefix("127.0.0.0/8"),    // loopback
	netip.MustParsePrefix("0.0.0.0/8"),      // current network
	netip.MustParsePrefix("224.0.0.0/8"),    // multicast
	netip.MustParsePrefix("240.0.0.0/8"),    // reserved
}

// blockedIPv6Ranges are the IPv6 prefixes never reachable through the guard.
var blockedIPv6Ranges = []netip.Prefix{
	netip.MustParsePrefix("::1/128"),  // loopback
	netip.MustParsePrefix("fe80::/10"), // link-local
	netip.MustParsePrefix("fc00::/7"),  // unique-local (fc00:: through fdff::)
	netip.MustParsePrefix("ff00::/8"),  // multicast
	netip.MustParsePrefix("::/128"),    // unspecified
}

// TrustPolicy is an immutable allowlist of domain suffixes plus the blocked
// address ranges and a localhost toggle. Build one once at startup through
// the profile constructors; ad-hoc string slices never reach the validator.
type TrustPolicy struct {
	allowedDomains map[string]struct{}
	allowLocalhost bool
}

// NewTrustPolicy builds a policy from the given domain suffixes. Entries are
// lower-cased and trimmed; empty entries are dropped.
func NewTrustPolicy(domains []string, allowLocalhost bool) TrustPolicy {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed[d] = struct{}{}
		}
	}
	return TrustPolicy{allowedDomains: allowed, allowLocalhost: allowLocalhost}
}

// ExternalPolicy returns the broad trust profile, optionally extended with
// deployment-specific domains from configuration.
func ExternalPolicy(extraDomains []string, allowLocalhost bool) TrustPolicy {
	domains := make([]string, 0, len(externalDefaultDomains)+len(extraDomains))
	domains = append(domains, externalDefaultDomains...)
	domains = append(domains, extraDomains...)
	return NewTrustPolicy(domains, allowLocalhost)
}

// InternalPolicy returns the narrow trust profile covering only the
// application's own registry and staging hosts.
func InternalPolicy(allowLocalhost bool) TrustPolicy {
	return NewTrustPolicy(internalDefaultDomains, allowLocalhost)
}

// AllowLocalhost reports whether localhost literals bypass validation.
func (p TrustPolicy) AllowLocalhost() bool {
	return p.allowLocalhost
}

// AllowsHost reports whether the (lower-cased) hostname equals an allowed
// entry or is a proper subdomain of one. Bare substring matches never count.
func (p TrustPolicy) AllowsHost(host string) bool {
	if _, ok := p.allowedDomains[host]; ok {
		return true
	}
	for d := range p.allowedDomains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// AllowsLiteral reports whether an IP literal appears verbatim in the
// allowed set. IP literals are never implicitly trusted via suffix matching.
func (p TrustPolicy) AllowsLiteral(host string) bool {
	_, ok := p.allowedDomains[host]
	return ok
}

// Domains returns the allowed entries in sorted order.
func (p TrustPolicy) Domains() []string {
	out := make([]string, 0, len(p.allowedDomains))
	for d := range p.allowedDomains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// BlockedIPv4Range returns the blocked range containing addr, if any.
func BlockedIPv4Range(addr netip.Addr) (netip.Prefix, bool) {
	for _, r := range blockedIPv4Ranges {
		if r.Contains(addr) {
			return r, true
		}
	}
	return netip.Prefix{}, false
}

// BlockedIPv6Range returns the blocked prefix containing addr, if any.
func BlockedIPv6Range(addr netip.Addr) (netip.Prefix, bool) {
	for _, r := range blockedIPv6Ranges {
		if r.Contains(addr) {
			return r, true
		}
	}
	return netip.Prefix{}, false
}

// IsLoopbackRange reports whether the prefix is one of the loopback blocks,
// which are the only ranges the localhost toggle may bypass.
func IsLoopbackRange(p netip.Prefix) bool {
	return p == netip.MustParsePrefix("127.0.0.0/8") || p == netip.MustParsePrefix("::1/128")
}
