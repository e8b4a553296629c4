package dto

import (
	"time"

	"github.com/hollis/reportline/internal/api/validation"
)

type CreateReportRequest struct {
	Category           string     `json:"category"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Location           string     `json:"location,omitempty"`
	OccurredAt         *time.Time `json:"occurred_at,omitempty"`
	Witnesses          string     `json:"witnesses,omitempty"`
	PreviouslyReported bool       `json:"previously_reported,omitempty"`
	IsAnonymous        bool       `json:"is_anonymous,omitempty"`
	ReporterName       string     `json:"reporter_name,omitempty"`
	ReporterEmail      string     `json:"reporter_email,omitempty"`
	ReporterPhone      string     `json:"reporter_phone,omitempty"`
	Priority           string     `json:"priority,omitempty"`
}

func (r CreateReportRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Category == "" {
		errors["category"] = "Category is required"
	}
	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.Description == "" {
		errors["description"] = "Description is required"
	}
	if r.ReporterEmail != "" && !validation.IsValidEmail(r.ReporterEmail) {
		errors["reporter_email"] = "Email format is invalid"
	}

	return errors
}

type UpdateStatusRequest struct {
	Status          string `json:"status"`
	Note            string `json:"note,omitempty"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

func (r UpdateStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Status == "" {
		errors["status"] = "Status is required"
	}

	return errors
}

type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

type AddUpdateRequest struct {
	Message    string `json:"message"`
	Visibility string `json:"visibility,omitempty"`
}

func (r AddUpdateRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Message == "" {
		errors["message"] = "Message is required"
	}

	return errors
}

type ReporterContactResponse struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
