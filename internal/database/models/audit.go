package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of an administrative action. Rows are
// never mutated or deleted, and reference users/entities weakly: deleting the
// referenced entity neither blocks on nor cascades into the log.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string     `gorm:"not null;index" json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Details    string     `gorm:"type:jsonb;default:'{}'" json:"details"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AIUsage records one AI gateway invocation, written regardless of upstream
// success; OutputText is empty when the provider failed.
type AIUsage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ReportID   *uuid.UUID `gorm:"type:uuid" json:"report_id,omitempty"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	TaskType   string     `gorm:"not null;index" json:"task_type"`
	InputText  string     `gorm:"type:text" json:"input_text"`
	OutputText string     `gorm:"type:text" json:"output_text"`
	TokensUsed int        `json:"tokens_used"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (AIUsage) TableName() string {
	return "ai_usage"
}

func (u *AIUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
