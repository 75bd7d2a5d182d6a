package services

import (
	"context"
	"sync"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
)

// memAuditStore implements AuditLogStore in memory for testing. Tests may
// reach into logs to simulate after-the-fact tampering.
type memAuditStore struct {
	mu         sync.Mutex
	logs       []*models.AuditLog
	nextID     int64
	failInsert bool
}

func newMemAuditStore() *memAuditStore {
	return &memAuditStore{}
}

func sameTenant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memAuditStore) Insert(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert {
		return nil, models.ErrInternalServer
	}
	m.nextID++
	stored := *log
	stored.ID = m.nextID
	m.logs = append(m.logs, &stored)
	return &stored, nil
}

func (m *memAuditStore) SetRecordHash(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range m.logs {
		if log.ID == id {
			log.RecordHash = hash
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memAuditStore) LatestHash(ctx context.Context, tenantID *string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.logs) - 1; i >= 0; i-- {
		if sameTenant(m.logs[i].TenantID, tenantID) {
			return m.logs[i].RecordHash, nil
		}
	}
	return models.GenesisHash, nil
}

func (m *memAuditStore) ListAscending(ctx context.Context, tenantID *string, limit int) ([]*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, 0)
	for _, log := range m.logs {
		if sameTenant(log.TenantID, tenantID) {
			out = append(out, log)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memAuditStore) ListRecent(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*models.AuditLog, 0)
	for i := len(m.logs) - 1; i >= 0; i-- {
		if sameTenant(m.logs[i].TenantID, tenantID) {
			matched = append(matched, m.logs[i])
		}
	}
	if offset >= len(matched) {
		return []*models.AuditLog{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockResetTokenRepository implements ResetTokenRepository for testing
type MockResetTokenRepository struct {
	CreateFunc  func(ctx context.Context, token *models.PasswordResetToken) error
	ConsumeFunc func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
}

func (m *MockResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockResetTokenRepository) Consume(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	mu        sync.Mutex
	Sent      []string // recipient emails, in order
	LastToken string
	Err       error
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, email)
	m.LastToken = token
	return nil
}
