package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwakar453t/Vincenzo-sub000/internal/database"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository handles audit chain data access. The audit_logs
// table is append-only: rows are inserted and their record_hash filled in
// once; nothing here updates or deletes historical records.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

const auditLogColumns = `id, tenant_id, actor_id, actor_email, actor_role,
	       resource_type, resource_id, resource_name, action, status,
	       failure_reason, ip_address, user_agent, metadata, changes,
	       previous_hash, record_hash, created_at`

// scanAuditLogRow handles nullable fields and populates an AuditLog model
func scanAuditLogRow(row rowScanner) (*models.AuditLog, error) {
	var log models.AuditLog

	err := row.Scan(
		&log.ID, &log.TenantID, &log.ActorID, &log.ActorEmail, &log.ActorRole,
		&log.ResourceType, &log.ResourceID, &log.ResourceName, &log.Action, &log.Status,
		&log.FailureReason, &log.IPAddress, &log.UserAgent, &log.Metadata, &log.Changes,
		&log.PreviousHash, &log.RecordHash, &log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanAuditLogRows(rows pgx.Rows) ([]*models.AuditLog, error) {
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)

	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// Insert persists a new audit record and returns it with the assigned
// primary key. The record hash is written separately once the key is
// known; the chain append lock held by the caller spans both steps.
func (r *AuditLogRepository) Insert(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	query := `
		INSERT INTO audit_logs (
			tenant_id, actor_id, actor_email, actor_role, resource_type,
			resource_id, resource_name, action, status, failure_reason,
			ip_address, user_agent, metadata, changes, previous_hash, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + auditLogColumns

	result, err := scanAuditLogRow(r.pool.QueryRow(
		ctx, query,
		log.TenantID, log.ActorID, log.ActorEmail, log.ActorRole, log.ResourceType,
		log.ResourceID, log.ResourceName, log.Action, log.Status, log.FailureReason,
		log.IPAddress, log.UserAgent, log.Metadata, log.Changes, log.PreviousHash, log.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit log: %w", err)
	}

	return result, nil
}

// SetRecordHash fills in the hash of a freshly inserted record.
func (r *AuditLogRepository) SetRecordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE audit_logs SET record_hash = $2 WHERE id = $1 AND record_hash = ''`

	tag, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set record hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("audit log %d missing or already sealed", id)
	}
	return nil
}

// LatestHash returns the record_hash of the most recently inserted record
// for the tenant's chain (the NULL-tenant chain when tenantID is nil), or
// the genesis sentinel when the chain is empty.
func (r *AuditLogRepository) LatestHash(ctx context.Context, tenantID *string) (string, error) {
	query := `
		SELECT record_hash FROM audit_logs
		WHERE tenant_id IS NOT DISTINCT FROM $1
		ORDER BY id DESC
		LIMIT 1
	`

	var hash string
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest chain hash: %w", err)
	}

	return hash, nil
}

// ListAscending returns up to limit records of one chain in insertion
// order, for verification walks.
func (r *AuditLogRepository) ListAscending(ctx context.Context, tenantID *string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditLogColumns + `
		FROM audit_logs
		WHERE tenant_id IS NOT DISTINCT FROM $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit chain: %w", err)
	}

	return scanAuditLogRows(rows)
}

// ListRecent returns a page of records newest-first for the admin trail.
func (r *AuditLogRepository) ListRecent(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditLogColumns + `
		FROM audit_logs
		WHERE tenant_id IS NOT DISTINCT FROM $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}

	return scanAuditLogRows(rows)
}

// CountByTenant counts the records in one chain.
func (r *AuditLogRepository) CountByTenant(ctx context.Context, tenantID *string) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE tenant_id IS NOT DISTINCT FROM $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	return count, nil
}
