package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	pkghttp "github.com/diwakar453t/Vincenzo-sub000/pkg/http"
)

// AuditServiceInterface defines the audit operations exposed over HTTP
type AuditServiceInterface interface {
	VerifyChain(ctx context.Context, tenantID *string, limit int) (*models.VerificationResult, error)
	Trail(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditHandler handles the admin-only audit trail HTTP requests
type AuditHandler struct {
	service AuditServiceInterface
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID            int64                  `json:"id"`
	TenantID      *string                `json:"tenant_id,omitempty"`
	ActorID       *string                `json:"actor_id,omitempty"`
	ActorEmail    *string                `json:"actor_email,omitempty"`
	ActorRole     *string                `json:"actor_role,omitempty"`
	ResourceType  string                 `json:"resource_type"`
	ResourceID    *string                `json:"resource_id,omitempty"`
	ResourceName  *string                `json:"resource_name,omitempty"`
	Action        string                 `json:"action"`
	Status        string                 `json:"status"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	UserAgent     *string                `json:"user_agent,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	PreviousHash  string                 `json:"previous_hash"`
	RecordHash    string                 `json:"record_hash"`
	CreatedAt     string                 `json:"created_at"`
}

// VerifyChainResponse reports the outcome of a chain integrity check
type VerifyChainResponse struct {
	Valid    bool   `json:"valid"`
	BrokenAt *int64 `json:"broken_at,omitempty"`
	Checked  int    `json:"checked"`
}

// tenantScope reads the optional tenant_id query parameter. An absent or
// empty value means the global (tenant-less) chain.
func tenantScope(r *http.Request) *string {
	if tenant := r.URL.Query().Get("tenant_id"); tenant != "" {
		return &tenant
	}
	return nil
}

func intQuery(r *http.Request, name string, fallback, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// VerifyChain runs a chain integrity check (admin only)
func (h *AuditHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.VerifyChain(r.Context(), tenantScope(r), intQuery(r, "limit", 0, 0))
	if err != nil {
		pkghttp.WriteInternalError(w, "Chain verification failed")
		return
	}

	writeJSON(w, http.StatusOK, VerifyChainResponse{
		Valid:    result.Valid,
		BrokenAt: result.BrokenAt,
		Checked:  result.Checked,
	})
}

// GetTrail lists recent audit records, newest first (admin only)
func (h *AuditHandler) GetTrail(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50, 100)
	offset := intQuery(r, "offset", 0, 0)

	logs, err := h.service.Trail(r.Context(), tenantScope(r), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to fetch audit trail")
		return
	}

	resp := make([]*AuditLogResponse, 0, len(logs))
	for _, log := range logs {
		resp = append(resp, auditLogToResponse(log))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   resp,
		"limit":  limit,
		"offset": offset,
	})
}

func auditLogToResponse(log *models.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:            log.ID,
		TenantID:      log.TenantID,
		ActorID:       actorIDString(log),
		ActorEmail:    log.ActorEmail,
		ActorRole:     log.ActorRole,
		ResourceType:  log.ResourceType,
		ResourceID:    log.ResourceID,
		ResourceName:  log.ResourceName,
		Action:        string(log.Action),
		Status:        string(log.Status),
		FailureReason: log.FailureReason,
		IPAddress:     log.IPAddress,
		UserAgent:     log.UserAgent,
		Metadata:      log.Metadata,
		PreviousHash:  log.PreviousHash,
		RecordHash:    log.RecordHash,
		CreatedAt:     log.CreatedAt.Format(time.RFC3339Nano),
	}
}

func actorIDString(log *models.AuditLog) *string {
	if log.ActorID == nil {
		return nil
	}
	s := log.ActorID.String()
	return &s
}
