package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportCategory string

const (
	CategoryProductSafety ReportCategory = "product_safety"
	CategoryMisconduct    ReportCategory = "misconduct"
	CategoryHealthSafety  ReportCategory = "health_safety"
	CategoryHarassment    ReportCategory = "harassment"
)

type ReportStatus string

const (
	StatusSubmitted     ReportStatus = "submitted"
	StatusUnderReview   ReportStatus = "under_review"
	StatusInvestigating ReportStatus = "investigating"
	StatusResolved      ReportStatus = "resolved"
	StatusClosed        ReportStatus = "closed"
	StatusEscalated     ReportStatus = "escalated"
)

type ReportPriority string

const (
	PriorityLow      ReportPriority = "low"
	PriorityMedium   ReportPriority = "medium"
	PriorityHigh     ReportPriority = "high"
	PriorityCritical ReportPriority = "critical"
)

type UpdateVisibility string

const (
	VisibilityInternal UpdateVisibility = "internal"
	VisibilityReporter UpdateVisibility = "reporter"
)

// Report is the central entity, always created inside a tenant partition.
// The reference number is immutable once assigned and unique per tenant.
type Report struct {
	Base
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reports_tenant_ref;index" json:"tenant_id"`
	ReferenceNumber string    `gorm:"not null;uniqueIndex:idx_reports_tenant_ref" json:"reference_number"`

	Category    ReportCategory `gorm:"not null;index" json:"category"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`

	Location           string     `json:"location,omitempty"`
	OccurredAt         *time.Time `json:"occurred_at,omitempty"`
	Witnesses          string     `json:"witnesses,omitempty"`
	PreviouslyReported bool       `gorm:"default:false" json:"previously_reported"`

	// Reporter identity. Contact details are encrypted at rest and never
	// serialized; an anonymous report carries none of these.
	IsAnonymous      bool   `gorm:"default:false" json:"is_anonymous"`
	ReporterName     string `json:"reporter_name,omitempty"`
	ReporterEmailEnc string `json:"-"`
	ReporterPhoneEnc string `json:"-"`

	// Bad-faith heuristic: computed at creation, may be recomputed but never
	// silently cleared once flags exist.
	BadFaithScore int    `gorm:"default:0" json:"bad_faith_score"`
	BadFaithFlags string `gorm:"type:jsonb;default:'[]'" json:"bad_faith_flags"`

	Status     ReportStatus   `gorm:"not null;index;default:'submitted'" json:"status"`
	Priority   ReportPriority `gorm:"default:'medium'" json:"priority"`
	AssigneeID *uuid.UUID     `gorm:"type:uuid" json:"assignee_id,omitempty"`

	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes,omitempty"`

	// Relationships
	Tenant      *Tenant            `gorm:"foreignKey:TenantID" json:"-"`
	Updates     []ReportUpdate     `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"-"`
	Attachments []ReportAttachment `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

// ReportUpdate is a threaded note on a report. Append-only.
type ReportUpdate struct {
	Base
	ReportID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"report_id"`
	AuthorID   *uuid.UUID       `gorm:"type:uuid" json:"author_id,omitempty"`
	Message    string           `gorm:"type:text;not null" json:"message"`
	Visibility UpdateVisibility `gorm:"not null;default:'internal'" json:"visibility"`
}

func (ReportUpdate) TableName() string {
	return "report_updates"
}

// ReportAttachment holds file metadata only; bytes live in the object store
// under StorageKey.
type ReportAttachment struct {
	Base
	ReportID    uuid.UUID `gorm:"type:uuid;not null;index" json:"report_id"`
	FileName    string    `gorm:"not null" json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `gorm:"not null" json:"-"`
}

func (ReportAttachment) TableName() string {
	return "report_attachments"
}

// ReportSequence is the per-tenant, per-year reference number counter.
type ReportSequence struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Year     int       `gorm:"primaryKey"`
	Counter  int64     `gorm:"not null;default:0"`
}

func (ReportSequence) TableName() string {
	return "report_sequences"
}
