package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hollis/reportline/internal/tasks"
)

// Dispatcher publishes report lifecycle events for asynchronous delivery.
// Publishing is fire-and-forget: failure never rolls back the mutation that
// produced the event.
type Dispatcher interface {
	ReportCreated(ctx context.Context, ev tasks.ReportCreatedPayload)
	StatusChanged(ctx context.Context, ev tasks.StatusChangedPayload)
}

// QueueDispatcher enqueues events onto the notification queue.
type QueueDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewQueueDispatcher(client *asynq.Client, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{client: client, logger: logger}
}

func (d *QueueDispatcher) ReportCreated(ctx context.Context, ev tasks.ReportCreatedPayload) {
	task, err := tasks.NewReportCreatedTask(ev)
	if err != nil {
		d.logger.Error("building report_created task", "error", err)
		return
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		d.logger.Warn("report saved but event not enqueued",
			"reference", ev.ReferenceNumber, "error", err)
	}
}

func (d *QueueDispatcher) StatusChanged(ctx context.Context, ev tasks.StatusChangedPayload) {
	task, err := tasks.NewStatusChangedTask(ev)
	if err != nil {
		d.logger.Error("building status_changed task", "error", err)
		return
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		d.logger.Warn("status updated but event not enqueued",
			"reference", ev.ReferenceNumber, "error", err)
	}
}

// LogDispatcher stands in when no queue backend is available.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) ReportCreated(ctx context.Context, ev tasks.ReportCreatedPayload) {
	d.logger.Info("report_created event",
		"reference", ev.ReferenceNumber, "category", ev.Category, "tenant_id", ev.TenantID)
}

func (d *LogDispatcher) StatusChanged(ctx context.Context, ev tasks.StatusChangedPayload) {
	d.logger.Info("status_changed event",
		"reference", ev.ReferenceNumber, "status", ev.Status, "tenant_id", ev.TenantID)
}

var (
	_ Dispatcher = (*QueueDispatcher)(nil)
	_ Dispatcher = (*LogDispatcher)(nil)
)
