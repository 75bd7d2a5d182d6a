// Package metrics registers the Prometheus instruments for the security
// core: admission control decisions, lockouts, and audit chain activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	AccountLockouts    prometheus.Counter
	LoginFailures      prometheus.Counter
	AuditEntries       *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
	ChainVerifications *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "erp_ratelimit_decisions_total",
			Help: "Admission control decisions by outcome",
		}, []string{"outcome"}),
		AccountLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "erp_account_lockouts_total",
			Help: "Total number of account lockouts triggered",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "erp_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		AuditEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "erp_audit_entries_total",
			Help: "Audit records appended, by action",
		}, []string{"action"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "erp_audit_write_failures_total",
			Help: "Audit records that failed to persist (reported, not fatal)",
		}),
		ChainVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "erp_audit_chain_verifications_total",
			Help: "Chain integrity checks, by result",
		}, []string{"result"}),
	}
}
