package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig controls which upstream proxies may set forwarding headers.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ExtractClientIP resolves the client address used for rate limiting and
// audit records. X-Forwarded-For and X-Real-IP are honored only when the
// TCP peer is inside a trusted proxy range; otherwise forged headers from
// direct clients would let callers pick their own rate-limit bucket.
// Returns "unknown" when no address can be determined at all.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := remoteIP(r)

	if config != nil && withinTrustedProxies(peer, config.TrustedProxies) {
		// X-Forwarded-For holds a comma list, client first. Skip any
		// malformed entries a sloppy intermediary may have appended.
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, candidate := range strings.Split(xff, ",") {
				candidate = strings.TrimSpace(candidate)
				if net.ParseIP(candidate) != nil {
					return candidate
				}
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
			return xri
		}
	}

	return peer
}

func remoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	// RemoteAddr without a port, e.g. from tests
	return r.RemoteAddr
}

func withinTrustedProxies(ip string, cidrs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Misconfigured entries are skipped rather than trusted.
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}
