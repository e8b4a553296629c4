package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/database/models"
	"gorm.io/gorm"
)

// Ledger is the append-only record of administrative actions and AI usage.
// Entries are scoped to a tenant and never mutated or deleted.
type Ledger struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLedger(db *gorm.DB, logger *slog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// Entry describes one administrative action.
type Entry struct {
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

// Record appends an audit entry. Callers treat failures as non-fatal: the
// primary mutation is never rolled back because its audit write failed.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	details := "{}"
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			l.logger.Warn("dropping unmarshalable audit details", "action", e.Action, "error", err)
		} else {
			details = string(data)
		}
	}

	row := models.AuditLog{
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    details,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.logger.Error("audit write failed", "action", e.Action, "error", err)
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Usage describes one AI gateway invocation.
type Usage struct {
	TenantID   uuid.UUID
	ReportID   *uuid.UUID
	UserID     *uuid.UUID
	TaskType   string
	InputText  string
	OutputText string
	TokensUsed int
}

// RecordUsage appends a usage row. Written for every accepted invocation;
// OutputText is empty when the upstream call failed.
func (l *Ledger) RecordUsage(ctx context.Context, u Usage) error {
	row := models.AIUsage{
		TenantID:   u.TenantID,
		ReportID:   u.ReportID,
		UserID:     u.UserID,
		TaskType:   u.TaskType,
		InputText:  u.InputText,
		OutputText: u.OutputText,
		TokensUsed: u.TokensUsed,
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.logger.Error("usage write failed", "task", u.TaskType, "error", err)
		return fmt.Errorf("writing usage record: %w", err)
	}
	return nil
}

// ListFilter narrows audit listings. Zero values match everything.
type ListFilter struct {
	UserID *uuid.UUID
	Action string
	Limit  int
}

// List returns audit entries for one tenant, newest first.
func (l *Ledger) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]models.AuditLog, error) {
	query := l.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("tenant_id = ?", tenantID)

	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}

// ListUsage returns AI usage rows for one tenant, newest first.
func (l *Ledger) ListUsage(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.AIUsage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.AIUsage
	err := l.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing usage records: %w", err)
	}
	return rows, nil
}
