package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hollis/reportline/internal/database/models"
	"gorm.io/gorm"
)

// Handler delivers notification events. Delivery is best-effort by contract:
// the originating data mutation has already committed by the time a task runs.
type Handler struct {
	db         *gorm.DB
	logger     *slog.Logger
	webhookURL string
	httpClient *http.Client
}

func NewHandler(db *gorm.DB, logger *slog.Logger, webhookURL string) *Handler {
	return &Handler{
		db:         db,
		logger:     logger,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReportCreated, h.HandleReportCreated)
	mux.HandleFunc(TypeStatusChanged, h.HandleStatusChanged)
}

func (h *Handler) HandleReportCreated(ctx context.Context, t *asynq.Task) error {
	var payload ReportCreatedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	// Route to the tenant's operations contact when one is configured.
	var tenant models.Tenant
	err := h.db.WithContext(ctx).First(&tenant, payload.TenantID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("loading tenant: %w", err)
	}

	h.logger.Info("dispatching report_created notification",
		"reference", payload.ReferenceNumber,
		"category", payload.Category,
		"tenant_id", payload.TenantID,
		"recipient", tenant.OpsEmail,
	)

	return h.deliver(ctx, t.Payload())
}

func (h *Handler) HandleStatusChanged(ctx context.Context, t *asynq.Task) error {
	var payload StatusChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("dispatching status_changed notification",
		"reference", payload.ReferenceNumber,
		"status", payload.Status,
		"tenant_id", payload.TenantID,
	)

	return h.deliver(ctx, t.Payload())
}

// deliver forwards the raw event to the configured webhook. Without one the
// event is logged and considered delivered.
func (h *Handler) deliver(ctx context.Context, body []byte) error {
	if h.webhookURL == "" {
		h.logger.Debug("no webhook configured, skipping delivery")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
