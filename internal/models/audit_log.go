package models

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the previous-hash sentinel for the first record of a chain.
const GenesisHash = "GENESIS"

// hashTimeLayout is the canonical timestamp format used in record hashes.
// Entries are created with microsecond precision so the value survives a
// round-trip through a timestamptz column unchanged.
const hashTimeLayout = time.RFC3339Nano

// AuditAction enumerates the auditable operations of the platform.
type AuditAction string

const (
	ActionCreate               AuditAction = "create"
	ActionRead                 AuditAction = "read"
	ActionUpdate               AuditAction = "update"
	ActionDelete               AuditAction = "delete"
	ActionLoginSuccess         AuditAction = "login_success"
	ActionLoginFailure         AuditAction = "login_failure"
	ActionPasswordResetRequest AuditAction = "password_reset_request"
	ActionPasswordResetConfirm AuditAction = "password_reset_confirm"
	ActionConsentGiven         AuditAction = "consent_given"
	ActionConsentWithdrawn     AuditAction = "consent_withdrawn"
	ActionDataExport           AuditAction = "data_export"
	ActionDataErasure          AuditAction = "data_erasure"
	ActionAccessRequest        AuditAction = "access_request"
	ActionChainVerify          AuditAction = "chain_verify"
)

var validActions = map[AuditAction]bool{
	ActionCreate:               true,
	ActionRead:                 true,
	ActionUpdate:               true,
	ActionDelete:               true,
	ActionLoginSuccess:         true,
	ActionLoginFailure:         true,
	ActionPasswordResetRequest: true,
	ActionPasswordResetConfirm: true,
	ActionConsentGiven:         true,
	ActionConsentWithdrawn:     true,
	ActionDataExport:           true,
	ActionDataErasure:          true,
	ActionAccessRequest:        true,
	ActionChainVerify:          true,
}

// ParseAction normalizes an incoming action value to the canonical enum.
// Values are converted exactly once at the ingestion boundary; internal
// logic never carries maybe-a-string values.
func ParseAction(s string) (AuditAction, error) {
	a := AuditAction(strings.ToLower(strings.TrimSpace(s)))
	if !validActions[a] {
		return "", fmt.Errorf("unknown audit action %q", s)
	}
	return a, nil
}

// AuditStatus is the outcome of the audited operation.
type AuditStatus string

const (
	StatusSuccess AuditStatus = "success"
	StatusFailure AuditStatus = "failure"
)

// ParseStatus normalizes an incoming status value.
func ParseStatus(s string) (AuditStatus, error) {
	switch AuditStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusFailure:
		return StatusFailure, nil
	}
	return "", fmt.Errorf("unknown audit status %q", s)
}

// Resource types touched by the surrounding ERP modules.
const (
	ResourceStudent    = "student"
	ResourceTeacher    = "teacher"
	ResourceClass      = "class"
	ResourceFee        = "fee"
	ResourcePayroll    = "payroll"
	ResourceAttendance = "attendance"
	ResourceLibrary    = "library"
	ResourceHostel     = "hostel"
	ResourceTransport  = "transport"
	ResourceExam       = "exam"
	ResourceUser       = "user"
	ResourceConsent    = "consent"
	ResourceAuditLog   = "audit_log"
)

// AuditLog is one tamper-evident record in the hash-linked audit trail.
// Records are append-only: created once, never mutated or deleted.
type AuditLog struct {
	ID            int64         `db:"id"`
	TenantID      *string       `db:"tenant_id"`
	ActorID       *uuid.UUID    `db:"actor_id"`
	ActorEmail    *string       `db:"actor_email"`
	ActorRole     *string       `db:"actor_role"`
	ResourceType  string        `db:"resource_type"`
	ResourceID    *string       `db:"resource_id"`
	ResourceName  *string       `db:"resource_name"`
	Action        AuditAction   `db:"action"`
	Status        AuditStatus   `db:"status"`
	FailureReason *string       `db:"failure_reason"`
	IPAddress     *string       `db:"ip_address"`
	UserAgent     *string       `db:"user_agent"`
	Metadata      AuditMetadata `db:"metadata"`
	Changes       AuditChanges  `db:"changes"`
	PreviousHash  string        `db:"previous_hash"`
	RecordHash    string        `db:"record_hash"`
	CreatedAt     time.Time     `db:"created_at"`
}

// ComputeHash derives the record hash from the stored fields and the
// record's previous-hash backlink. The input is a pipe-joined string of
// (id, timestamp, user_id, action, resource_type, resource_id, tenant_id,
// status, previous_hash); nullable fields contribute an empty segment.
func (l *AuditLog) ComputeHash() string {
	return ComputeRecordHash(l, l.PreviousHash)
}

// ComputeRecordHash recomputes the hash of l as if previousHash were its
// backlink. The verifier uses this to walk the chain with the actual
// predecessor's stored hash rather than l's own claim.
func ComputeRecordHash(l *AuditLog, previousHash string) string {
	if previousHash == "" {
		previousHash = GenesisHash
	}
	var actorID string
	if l.ActorID != nil {
		actorID = l.ActorID.String()
	}
	payload := strings.Join([]string{
		fmt.Sprintf("%d", l.ID),
		l.CreatedAt.UTC().Format(hashTimeLayout),
		actorID,
		string(l.Action),
		l.ResourceType,
		derefString(l.ResourceID),
		derefString(l.TenantID),
		string(l.Status),
		previousHash,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// VerificationResult is the outcome of a chain integrity walk.
type VerificationResult struct {
	Valid    bool   `json:"valid"`
	BrokenAt *int64 `json:"broken_at"`
	Checked  int    `json:"checked"`
}

// AuditMetadata holds additional sanitized context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}

// ValueChange is a field-level before/after pair. For PII-classified
// fields both sides are stored as one-way hashes, never raw values.
type ValueChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// AuditChanges maps field names to their before/after values.
type AuditChanges map[string]ValueChange

// Scan implements sql.Scanner for JSONB
func (ac *AuditChanges) Scan(value interface{}) error {
	if value == nil {
		*ac = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]ValueChange
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*ac = AuditChanges(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (ac AuditChanges) Value() (driver.Value, error) {
	if ac == nil {
		return nil, nil
	}
	return json.Marshal(ac)
}
