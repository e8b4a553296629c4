package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/audit"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/notify"
	"github.com/hollis/reportline/internal/storage"
	"github.com/hollis/reportline/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrStatusConflict    = errors.New("report was modified concurrently")
	ErrAssigneeNotFound  = errors.New("assignee not found in tenant")
	ErrNoAttachmentStore = errors.New("attachment storage is not configured")
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var validCategories = map[models.ReportCategory]bool{
	models.CategoryProductSafety: true,
	models.CategoryMisconduct:    true,
	models.CategoryHealthSafety:  true,
	models.CategoryHarassment:    true,
}

var validPriorities = map[models.ReportPriority]bool{
	models.PriorityLow:      true,
	models.PriorityMedium:   true,
	models.PriorityHigh:     true,
	models.PriorityCritical: true,
}

// Service owns the report lifecycle inside a tenant partition. Every query
// it issues is filtered by tenant_id; there is no cross-tenant path.
type Service struct {
	db         *gorm.DB
	logger     *slog.Logger
	encryptor  *crypto.Encryptor
	scorer     Scorer
	refs       RefGenerator
	ledger     *audit.Ledger
	dispatcher notify.Dispatcher
	files      storage.FileStore
	now        func() time.Time
}

// ServiceConfig wires the report service dependencies. Files may be nil when
// no object store is configured; attachment uploads then fail cleanly.
type ServiceConfig struct {
	DB         *gorm.DB
	Logger     *slog.Logger
	Encryptor  *crypto.Encryptor
	Scorer     Scorer
	Refs       RefGenerator
	Ledger     *audit.Ledger
	Dispatcher notify.Dispatcher
	Files      storage.FileStore
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:         cfg.DB,
		logger:     cfg.Logger,
		encryptor:  cfg.Encryptor,
		scorer:     cfg.Scorer,
		refs:       cfg.Refs,
		ledger:     cfg.Ledger,
		dispatcher: cfg.Dispatcher,
		files:      cfg.Files,
		now:        time.Now,
	}
	if s.scorer == nil {
		s.scorer = HeuristicScorer{}
	}
	if s.refs == nil {
		s.refs = SequenceGenerator{}
	}
	return s
}

// CreateInput carries a new submission. Reporter contact fields are ignored
// when IsAnonymous is set.
type CreateInput struct {
	Category           models.ReportCategory
	Title              string
	Description        string
	Location           string
	OccurredAt         *time.Time
	Witnesses          string
	PreviouslyReported bool
	IsAnonymous        bool
	ReporterName       string
	ReporterEmail      string
	ReporterPhone      string
	Priority           models.ReportPriority
}

// Create validates and persists a submission, assigning the next reference
// number for the tenant's current year inside the same transaction.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Report, error) {
	if !validCategories[input.Category] {
		return nil, &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !validPriorities[priority] {
		return nil, &ValidationError{Field: "priority", Reason: "unknown priority"}
	}

	// An anonymous report carries no reporter identity regardless of what
	// the submission included.
	if input.IsAnonymous {
		input.ReporterName = ""
		input.ReporterEmail = ""
		input.ReporterPhone = ""
	}

	score, flags := s.scorer.Score(ScoreInput{Title: input.Title, Description: input.Description})
	flagsJSON := "[]"
	if len(flags) > 0 {
		data, err := json.Marshal(flags)
		if err != nil {
			return nil, fmt.Errorf("encoding flags: %w", err)
		}
		flagsJSON = string(data)
	}

	report := &models.Report{
		TenantID:           tenantID,
		Category:           input.Category,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		Location:           input.Location,
		OccurredAt:         input.OccurredAt,
		Witnesses:          input.Witnesses,
		PreviouslyReported: input.PreviouslyReported,
		IsAnonymous:        input.IsAnonymous,
		ReporterName:       input.ReporterName,
		BadFaithScore:      score,
		BadFaithFlags:      flagsJSON,
		Status:             models.StatusSubmitted,
		Priority:           priority,
	}

	if err := s.sealContacts(report, input.ReporterEmail, input.ReporterPhone); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := s.refs.Next(tx, tenantID, s.now())
		if err != nil {
			return err
		}
		report.ReferenceNumber = ref
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}

	if s.ledger != nil {
		_ = s.ledger.Record(ctx, audit.Entry{
			TenantID:   tenantID,
			Action:     "report_created",
			EntityType: "report",
			EntityID:   report.ID.String(),
			Details: map[string]any{
				"reference_number": report.ReferenceNumber,
				"category":         report.Category,
				"anonymous":        report.IsAnonymous,
				"bad_faith_score":  report.BadFaithScore,
			},
		})
	}

	if s.dispatcher != nil {
		s.dispatcher.ReportCreated(ctx, tasksReportCreated(report))
	}

	return report, nil
}

func (s *Service) sealContacts(report *models.Report, email, phone string) error {
	if email == "" && phone == "" {
		return nil
	}
	if s.encryptor == nil {
		s.logger.Warn("no encryptor configured, dropping reporter contact details")
		return nil
	}
	if email != "" {
		enc, err := s.encryptor.EncryptString(email)
		if err != nil {
			return fmt.Errorf("encrypting reporter email: %w", err)
		}
		report.ReporterEmailEnc = enc
	}
	if phone != "" {
		enc, err := s.encryptor.EncryptString(phone)
		if err != nil {
			return fmt.Errorf("encrypting reporter phone: %w", err)
		}
		report.ReporterPhoneEnc = enc
	}
	return nil
}

// Get loads one report by id or reference number, scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, idOrRef string) (*models.Report, error) {
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if id, err := uuid.Parse(idOrRef); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("reference_number = ?", idOrRef)
	}

	var report models.Report
	if err := query.First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("loading report: %w", err)
	}
	return &report, nil
}

// ListFilter narrows report listings. Zero values match everything.
type ListFilter struct {
	Status   models.ReportStatus
	Category models.ReportCategory
	Page     int
	Limit    int
}

// List returns the tenant's reports newest first, with the unpaged total.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]models.Report, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("tenant_id = ?", tenantID)

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var list []models.Report
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing reports: %w", err)
	}
	return list, total, nil
}

// StatusInput carries a lifecycle move.
type StatusInput struct {
	Status          models.ReportStatus
	Note            string
	ResolutionNotes string
	ActorID         *uuid.UUID
}

// UpdateStatus moves a report through the lifecycle. The write is
// conditional on the status observed at read time, so concurrent movers
// cannot both win.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, reportID uuid.UUID, input StatusInput) (*models.Report, error) {
	if !IsValidStatus(input.Status) {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	if !CanTransition(report.Status, input.Status) {
		return nil, &InvalidTransitionError{Current: report.Status, Requested: input.Status}
	}

	updates := map[string]any{"status": input.Status}
	if IsTerminal(input.Status) {
		now := s.now().UTC()
		updates["resolved_at"] = &now
		if input.ResolutionNotes != "" {
			updates["resolution_notes"] = input.ResolutionNotes
		}
	}

	res := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND tenant_id = ? AND status = ?", report.ID, tenantID, report.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("updating status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusConflict
	}

	if input.Note != "" {
		upd := models.ReportUpdate{
			ReportID:   report.ID,
			AuthorID:   input.ActorID,
			Message:    input.Note,
			Visibility: models.VisibilityInternal,
		}
		if err := s.db.WithContext(ctx).Create(&upd).Error; err != nil {
			s.logger.Warn("status note not saved", "report_id", report.ID, "error", err)
		}
	}

	if s.ledger != nil {
		_ = s.ledger.Record(ctx, audit.Entry{
			TenantID:   tenantID,
			UserID:     input.ActorID,
			Action:     "status_changed",
			EntityType: "report",
			EntityID:   report.ID.String(),
			Details: map[string]any{
				"reference_number": report.ReferenceNumber,
				"from":             report.Status,
				"to":               input.Status,
			},
		})
	}

	fresh, err := s.Get(ctx, tenantID, report.ID.String())
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		ev := tasksStatusChanged(fresh, input.Note)
		if !fresh.IsAnonymous && fresh.ReporterEmailEnc != "" && s.encryptor != nil {
			if email, err := s.encryptor.DecryptString(fresh.ReporterEmailEnc); err == nil {
				ev.RecipientEmail = email
			}
		}
		s.dispatcher.StatusChanged(ctx, ev)
	}

	return fresh, nil
}

// Assign sets the investigating owner. The assignee must be an active user
// of the same tenant.
func (s *Service) Assign(ctx context.Context, tenantID, reportID, assigneeID uuid.UUID, actorID *uuid.UUID) (*models.Report, error) {
	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND tenant_id = ? AND is_active = ?", assigneeID, tenantID, true).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("checking assignee: %w", err)
	}
	if count == 0 {
		return nil, ErrAssigneeNotFound
	}

	err = s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND tenant_id = ?", report.ID, tenantID).
		Update("assignee_id", assigneeID).Error
	if err != nil {
		return nil, fmt.Errorf("assigning report: %w", err)
	}

	if s.ledger != nil {
		_ = s.ledger.Record(ctx, audit.Entry{
			TenantID:   tenantID,
			UserID:     actorID,
			Action:     "report_assigned",
			EntityType: "report",
			EntityID:   report.ID.String(),
			Details: map[string]any{
				"reference_number": report.ReferenceNumber,
				"assignee_id":      assigneeID,
			},
		})
	}

	return s.Get(ctx, tenantID, report.ID.String())
}

// AddUpdate appends a note to the report's thread.
func (s *Service) AddUpdate(ctx context.Context, tenantID, reportID uuid.UUID, authorID *uuid.UUID, message string, visibility models.UpdateVisibility) (*models.ReportUpdate, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if visibility == "" {
		visibility = models.VisibilityInternal
	}
	if visibility != models.VisibilityInternal && visibility != models.VisibilityReporter {
		return nil, &ValidationError{Field: "visibility", Reason: "unknown visibility"}
	}

	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	upd := models.ReportUpdate{
		ReportID:   report.ID,
		AuthorID:   authorID,
		Message:    message,
		Visibility: visibility,
	}
	if err := s.db.WithContext(ctx).Create(&upd).Error; err != nil {
		return nil, fmt.Errorf("adding update: %w", err)
	}
	return &upd, nil
}

// ListUpdates returns the report's thread oldest first.
func (s *Service) ListUpdates(ctx context.Context, tenantID, reportID uuid.UUID) ([]models.ReportUpdate, error) {
	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	var updates []models.ReportUpdate
	err = s.db.WithContext(ctx).
		Where("report_id = ?", report.ID).
		Order("created_at ASC").
		Find(&updates).Error
	if err != nil {
		return nil, fmt.Errorf("listing updates: %w", err)
	}
	return updates, nil
}

// FileInput carries an attachment upload.
type FileInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddAttachment stores the bytes in the object store and records metadata.
func (s *Service) AddAttachment(ctx context.Context, tenantID, reportID uuid.UUID, input FileInput) (*models.ReportAttachment, error) {
	if s.files == nil {
		return nil, ErrNoAttachmentStore
	}
	if input.FileName == "" {
		return nil, &ValidationError{Field: "file_name", Reason: "must not be empty"}
	}

	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s-%s", tenantID, report.ID, uuid.New().String()[:8], input.FileName)
	storedKey, err := s.files.Put(ctx, key, input.Body, input.Size, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("storing attachment: %w", err)
	}

	att := models.ReportAttachment{
		ReportID:    report.ID,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		SizeBytes:   input.Size,
		StorageKey:  storedKey,
	}
	if err := s.db.WithContext(ctx).Create(&att).Error; err != nil {
		return nil, fmt.Errorf("recording attachment: %w", err)
	}
	return &att, nil
}

// ListAttachments returns attachment metadata for a report.
func (s *Service) ListAttachments(ctx context.Context, tenantID, reportID uuid.UUID) ([]models.ReportAttachment, error) {
	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return nil, err
	}

	var atts []models.ReportAttachment
	err = s.db.WithContext(ctx).
		Where("report_id = ?", report.ID).
		Order("created_at ASC").
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	return atts, nil
}

// ReporterContact decrypts the reporter's contact details for an
// investigator. Anonymous reports have none.
func (s *Service) ReporterContact(ctx context.Context, tenantID, reportID uuid.UUID) (email, phone string, err error) {
	report, err := s.Get(ctx, tenantID, reportID.String())
	if err != nil {
		return "", "", err
	}
	if s.encryptor == nil {
		return "", "", nil
	}
	if report.ReporterEmailEnc != "" {
		email, err = s.encryptor.DecryptString(report.ReporterEmailEnc)
		if err != nil {
			return "", "", fmt.Errorf("decrypting reporter email: %w", err)
		}
	}
	if report.ReporterPhoneEnc != "" {
		phone, err = s.encryptor.DecryptString(report.ReporterPhoneEnc)
		if err != nil {
			return "", "", fmt.Errorf("decrypting reporter phone: %w", err)
		}
	}
	return email, phone, nil
}

// StatsResult summarizes a tenant's partition.
type StatsResult struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	Recent     []models.Report  `json:"recent"`
}

// Stats aggregates counts for the tenant dashboard.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*StatsResult, error) {
	result := &StatsResult{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	base := s.db.WithContext(ctx).Model(&models.Report{}).Where("tenant_id = ?", tenantID)

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("counting reports: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("status as key, COUNT(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating by status: %w", err)
	}
	for _, b := range byStatus {
		result.ByStatus[b.Key] = b.Count
	}

	var byCategory []bucket
	err = s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("category as key, COUNT(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("category").
		Scan(&byCategory).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating by category: %w", err)
	}
	for _, b := range byCategory {
		result.ByCategory[b.Key] = b.Count
	}

	err = s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(5).
		Find(&result.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("loading recent reports: %w", err)
	}

	return result, nil
}
