package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/metrics"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/diwakar453t/Vincenzo-sub000/internal/privacy"
	"github.com/diwakar453t/Vincenzo-sub000/pkg/syncutil"
	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// AuditLogStore defines the persistence surface the audit chain needs.
type AuditLogStore interface {
	Insert(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	SetRecordHash(ctx context.Context, id int64, hash string) error
	LatestHash(ctx context.Context, tenantID *string) (string, error)
	ListAscending(ctx context.Context, tenantID *string, limit int) ([]*models.AuditLog, error)
	ListRecent(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error)
}

// FieldChange is a raw before/after pair handed in by callers. Values for
// PII-classified fields are one-way-hashed before persistence.
type FieldChange struct {
	Before interface{}
	After  interface{}
}

// AuditEvent is the ingestion form of one auditable action. String-typed
// Action and Status are normalized to their enums at this boundary.
type AuditEvent struct {
	Action        string
	Status        string // defaults to success
	ResourceType  string
	ResourceID    string
	ResourceName  string
	TenantID      string
	ActorID       *uuid.UUID
	ActorEmail    string
	ActorRole     string
	ClientIP      string
	UserAgent     string
	FailureReason string
	Metadata      map[string]interface{}
	Changes       map[string]FieldChange
}

// AuditService appends hash-linked records to the tamper-evident trail
// and verifies chain integrity. It dual-writes: every event goes to the
// operational slog stream immediately and to the store for compliance
// review. Store failures are reported, never propagated — an audit write
// is a side effect of the business operation, not a precondition.
type AuditService struct {
	store   AuditLogStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	// chains serializes read-last-hash → insert → seal per tenant chain.
	// Without it two concurrent writers could both read the same
	// previous_hash and silently fork the chain.
	chains *syncutil.ShardedMutex
	now    func() time.Time
}

// NewAuditService creates a new AuditService. metrics may be nil in tests.
func NewAuditService(store AuditLogStore, logger *slog.Logger, m *metrics.Metrics) *AuditService {
	return &AuditService{
		store:   store,
		logger:  logger,
		metrics: m,
		chains:  syncutil.NewShardedMutex(),
		now:     time.Now,
	}
}

// Log records one auditable event. It returns the persisted record, or
// nil when the event was malformed or the store rejected the write; in
// either case the failure has already been written to the operational log.
func (s *AuditService) Log(ctx context.Context, e AuditEvent) *models.AuditLog {
	action, err := models.ParseAction(e.Action)
	if err != nil {
		s.logger.ErrorContext(ctx, "rejected audit event", slog.Any("error", err))
		return nil
	}
	if e.Status == "" {
		e.Status = string(models.StatusSuccess)
	}
	status, err := models.ParseStatus(e.Status)
	if err != nil {
		s.logger.ErrorContext(ctx, "rejected audit event", slog.Any("error", err))
		return nil
	}

	entry := &models.AuditLog{
		TenantID:      optional(e.TenantID),
		ActorID:       e.ActorID,
		ActorEmail:    optional(e.ActorEmail),
		ActorRole:     optional(e.ActorRole),
		ResourceType:  e.ResourceType,
		ResourceID:    optional(e.ResourceID),
		ResourceName:  optional(e.ResourceName),
		Action:        action,
		Status:        status,
		FailureReason: optional(e.FailureReason),
		IPAddress:     optional(e.ClientIP),
		UserAgent:     optional(e.UserAgent),
		Metadata:      s.buildMetadata(e),
		Changes:       hashChanges(e.Changes),
		// Microsecond precision survives the timestamptz round-trip, so
		// the hash recomputed from a read-back row matches.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	// Dual-write: immediate slog output
	level := slog.LevelInfo
	if status == models.StatusFailure {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "audit event",
		slog.String("action", string(action)),
		slog.String("resource_type", e.ResourceType),
		slog.String("resource_id", e.ResourceID),
		slog.String("tenant_id", e.TenantID),
		slog.String("status", string(status)),
	)

	persisted, err := s.append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", string(action)),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.AuditEntries.WithLabelValues(string(action)).Inc()
	}
	return persisted
}

// append performs the serialized chain append: fetch the chain head,
// insert the record with its backlink, then seal it with its own hash
// once the primary key is known.
func (s *AuditService) append(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error) {
	chainKey := ""
	if entry.TenantID != nil {
		chainKey = *entry.TenantID
	}
	s.chains.Lock(chainKey)
	defer s.chains.Unlock(chainKey)

	prev, err := s.store.LatestHash(ctx, entry.TenantID)
	if err != nil {
		return nil, err
	}
	entry.PreviousHash = prev

	persisted, err := s.store.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}

	persisted.RecordHash = persisted.ComputeHash()
	if err := s.store.SetRecordHash(ctx, persisted.ID, persisted.RecordHash); err != nil {
		return nil, err
	}

	return persisted, nil
}

// VerifyChain walks one chain in insertion order, recomputing each
// record's hash from its stored fields and the preceding record's stored
// hash. The first divergence halts the walk and is reported as BrokenAt.
func (s *AuditService) VerifyChain(ctx context.Context, tenantID *string, limit int) (*models.VerificationResult, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}

	records, err := s.store.ListAscending(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit chain: %w", err)
	}

	result := &models.VerificationResult{Valid: true, Checked: len(records)}
	prev := models.GenesisHash
	for _, record := range records {
		expected := models.ComputeRecordHash(record, prev)
		if expected != record.RecordHash {
			id := record.ID
			result.Valid = false
			result.BrokenAt = &id
			break
		}
		prev = record.RecordHash
	}

	if s.metrics != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = "broken"
		}
		s.metrics.ChainVerifications.WithLabelValues(outcome).Inc()
	}
	if !result.Valid {
		s.logger.ErrorContext(ctx, "audit chain integrity violation",
			slog.Any("broken_at", result.BrokenAt),
			slog.Int("checked", result.Checked),
		)
	}

	return result, nil
}

// Trail returns a page of the most recent records for one chain.
func (s *AuditService) Trail(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.store.ListRecent(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return logs, nil
}

// buildMetadata masks classified metadata values and enriches the entry
// with a parsed client summary when a user agent is present.
func (s *AuditService) buildMetadata(e AuditEvent) models.AuditMetadata {
	md := privacy.SanitizeMetadata(e.Metadata)
	if e.UserAgent == "" {
		return md
	}
	if md == nil {
		md = make(map[string]interface{}, 2)
	}
	ua := useragent.New(e.UserAgent)
	if name, version := ua.Browser(); name != "" {
		md["client_browser"] = fmt.Sprintf("%s %s", name, version)
	}
	if os := ua.OS(); os != "" {
		md["client_os"] = os
	}
	return md
}

// hashChanges renders a caller-supplied change set, replacing values of
// PII-classified fields with their one-way hashes.
func hashChanges(changes map[string]FieldChange) models.AuditChanges {
	if changes == nil {
		return nil
	}
	out := make(models.AuditChanges, len(changes))
	for field, change := range changes {
		before := fmt.Sprintf("%v", change.Before)
		after := fmt.Sprintf("%v", change.After)
		if privacy.Classify(field) >= privacy.TierSensitive {
			before = privacy.HashValue(field, before)
			after = privacy.HashValue(field, after)
		}
		out[field] = models.ValueChange{Before: before, After: after}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
