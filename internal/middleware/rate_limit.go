package middleware

import (
	"net/http"

	"github.com/diwakar453t/Vincenzo-sub000/internal/metrics"
	"github.com/diwakar453t/Vincenzo-sub000/internal/ratelimit"
	pkghttp "github.com/diwakar453t/Vincenzo-sub000/pkg/http"
)

// TenantHeader names the request header carrying the tenant identifier.
// Authenticated routes override it from the JWT claims further down the
// chain; for pre-auth endpoints the header is the only tenant signal.
const TenantHeader = "X-Tenant-ID"

// RateLimit admits or rejects every request through the layered token
// buckets (per-IP, per-tenant, per-sensitive-path). Denials get a 429
// with a Retry-After estimate from the bucket that said no.
func RateLimit(limiter *ratelimit.Limiter, ipConfig *pkghttp.IPConfig, m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r, ipConfig)
			tenantID := r.Header.Get(TenantHeader)

			allowed, retryAfter := limiter.Check(ip, tenantID, r.URL.Path)
			if !allowed {
				if m != nil {
					m.RateLimitDecisions.WithLabelValues("denied").Inc()
				}
				pkghttp.WriteRateLimited(w, retryAfter)
				return
			}

			if m != nil {
				m.RateLimitDecisions.WithLabelValues("allowed").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}
