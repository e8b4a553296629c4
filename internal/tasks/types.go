package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeReportCreated = "notify:report_created"
	TypeStatusChanged = "notify:status_changed"
)

// ReportCreatedPayload is the event emitted when a report enters a tenant
// partition.
type ReportCreatedPayload struct {
	Type            string    `json:"type"`
	ReferenceNumber string    `json:"reference_number"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	TenantID        uuid.UUID `json:"tenant_id"`
}

func NewReportCreatedTask(payload ReportCreatedPayload) (*asynq.Task, error) {
	payload.Type = TypeReportCreated
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportCreated, data, asynq.Queue("notifications")), nil
}

// StatusChangedPayload is the event emitted when a report moves through its
// lifecycle.
type StatusChangedPayload struct {
	Type            string    `json:"type"`
	ReferenceNumber string    `json:"reference_number"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	RecipientEmail  string    `json:"recipient_email,omitempty"`
	TenantID        uuid.UUID `json:"tenant_id"`
}

func NewStatusChangedTask(payload StatusChangedPayload) (*asynq.Task, error) {
	payload.Type = TypeStatusChanged
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStatusChanged, data, asynq.Queue("notifications")), nil
}
