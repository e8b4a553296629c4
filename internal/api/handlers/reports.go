package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/api/dto"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/reports"
)

const maxAttachmentBytes = 10 << 20 // 10 MiB

type ReportHandler struct {
	service *reports.Service
}

func NewReportHandler(service *reports.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

// ReportResponse is the API shape of a report. Reporter contact details
// never appear here; investigators fetch them through the contact endpoint.
type ReportResponse struct {
	ID              string  `json:"id"`
	ReferenceNumber string  `json:"reference_number"`
	Category        string  `json:"category"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Location        string  `json:"location,omitempty"`
	OccurredAt      *string `json:"occurred_at,omitempty"`
	Witnesses       string  `json:"witnesses,omitempty"`
	IsAnonymous     bool    `json:"is_anonymous"`
	ReporterName    string  `json:"reporter_name,omitempty"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
	BadFaithScore   int     `json:"bad_faith_score"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
	ResolutionNotes string  `json:"resolution_notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func reportToResponse(report *models.Report) ReportResponse {
	resp := ReportResponse{
		ID:              report.ID.String(),
		ReferenceNumber: report.ReferenceNumber,
		Category:        string(report.Category),
		Title:           report.Title,
		Description:     report.Description,
		Location:        report.Location,
		Witnesses:       report.Witnesses,
		IsAnonymous:     report.IsAnonymous,
		ReporterName:    report.ReporterName,
		Status:          string(report.Status),
		Priority:        string(report.Priority),
		BadFaithScore:   report.BadFaithScore,
		ResolutionNotes: report.ResolutionNotes,
		CreatedAt:       report.CreatedAt.Format(time.RFC3339),
	}
	if report.OccurredAt != nil {
		s := report.OccurredAt.Format(time.RFC3339)
		resp.OccurredAt = &s
	}
	if report.ResolvedAt != nil {
		s := report.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	if report.AssigneeID != nil {
		s := report.AssigneeID.String()
		resp.AssigneeID = &s
	}
	return resp
}

// Create handles POST /api/reports. Submission is public within a tenant:
// reporters do not need an account.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req dto.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	report, err := h.service.Create(r.Context(), tenantID, reports.CreateInput{
		Category:           models.ReportCategory(req.Category),
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		OccurredAt:         req.OccurredAt,
		Witnesses:          req.Witnesses,
		PreviouslyReported: req.PreviouslyReported,
		IsAnonymous:        req.IsAnonymous,
		ReporterName:       req.ReporterName,
		ReporterEmail:      req.ReporterEmail,
		ReporterPhone:      req.ReporterPhone,
		Priority:           models.ReportPriority(req.Priority),
	})
	if err != nil {
		var ve *reports.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{ve.Field: ve.Reason}})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create report"})
		return
	}

	writeJSON(w, http.StatusCreated, reportToResponse(report))
}

// List handles GET /api/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	list, total, err := h.service.List(r.Context(), tenantID, reports.ListFilter{
		Status:   models.ReportStatus(r.URL.Query().Get("status")),
		Category: models.ReportCategory(r.URL.Query().Get("category")),
		Page:     pagination.Page,
		Limit:    pagination.PerPage,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list reports"})
		return
	}

	response := make([]ReportResponse, len(list))
	for i, report := range list {
		response[i] = reportToResponse(&report)
	}

	totalPages := int(total) / pagination.PerPage
	if int(total)%pagination.PerPage > 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages,
	})
}

// Get handles GET /api/reports/{id}. The id may be a UUID or a reference
// number, so reporters can check on a submission they made anonymously.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	report, err := h.service.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get report"})
		return
	}

	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// UpdateStatus handles PUT /api/reports/{id}/status
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	var req dto.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	report, err := h.service.UpdateStatus(r.Context(), tenantID, reportID, reports.StatusInput{
		Status:          models.ReportStatus(req.Status),
		Note:            req.Note,
		ResolutionNotes: req.ResolutionNotes,
		ActorID:         &userID,
	})
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportToResponse(report))
}

func (h *ReportHandler) writeStatusError(w http.ResponseWriter, err error) {
	var ve *reports.ValidationError
	var te *reports.InvalidTransitionError

	switch {
	case errors.Is(err, reports.ErrReportNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{ve.Field: ve.Reason}})
	case errors.As(err, &te):
		// A disallowed move is a bad request; 409 is reserved for losing a
		// concurrent update.
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: te.Error()})
	case errors.Is(err, reports.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Report was modified concurrently, retry"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update status"})
	}
}

// Assign handles PUT /api/reports/{id}/assignee
func (h *ReportHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	var req dto.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid assignee ID"})
		return
	}

	report, err := h.service.Assign(r.Context(), tenantID, reportID, assigneeID, &userID)
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrReportNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
		case errors.Is(err, reports.ErrAssigneeNotFound):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Assignee not found in tenant"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to assign report"})
		}
		return
	}

	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// AddUpdate handles POST /api/reports/{id}/updates
func (h *ReportHandler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	var req dto.AddUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	update, err := h.service.AddUpdate(r.Context(), tenantID, reportID, &userID, req.Message, models.UpdateVisibility(req.Visibility))
	if err != nil {
		var ve *reports.ValidationError
		switch {
		case errors.Is(err, reports.ErrReportNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
		case errors.As(err, &ve):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: map[string]string{ve.Field: ve.Reason}})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to add update"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, update)
}

// ListUpdates handles GET /api/reports/{id}/updates
func (h *ReportHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	updates, err := h.service.ListUpdates(r.Context(), tenantID, reportID)
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list updates"})
		return
	}

	writeJSON(w, http.StatusOK, updates)
}

// AddAttachment handles POST /api/reports/{id}/attachments (multipart)
func (h *ReportHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or oversized upload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Missing file field"})
		return
	}
	defer file.Close()

	att, err := h.service.AddAttachment(r.Context(), tenantID, reportID, reports.FileInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrReportNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
		case errors.Is(err, reports.ErrNoAttachmentStore):
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Attachment storage is not configured"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to store attachment"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, att)
}

// ListAttachments handles GET /api/reports/{id}/attachments
func (h *ReportHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	atts, err := h.service.ListAttachments(r.Context(), tenantID, reportID)
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list attachments"})
		return
	}

	writeJSON(w, http.StatusOK, atts)
}

// Contact handles GET /api/reports/{id}/contact
func (h *ReportHandler) Contact(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid report ID"})
		return
	}

	email, phone, err := h.service.ReporterContact(r.Context(), tenantID, reportID)
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read contact details"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ReporterContactResponse{Email: email, Phone: phone})
}

// Stats handles GET /api/reports/stats
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	stats, err := h.service.Stats(r.Context(), tenantID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to compute stats"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
