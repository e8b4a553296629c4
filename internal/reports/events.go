package reports

import (
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/tasks"
)

func tasksReportCreated(r *models.Report) tasks.ReportCreatedPayload {
	return tasks.ReportCreatedPayload{
		ReferenceNumber: r.ReferenceNumber,
		Category:        string(r.Category),
		Title:           r.Title,
		TenantID:        r.TenantID,
	}
}

func tasksStatusChanged(r *models.Report, message string) tasks.StatusChangedPayload {
	return tasks.StatusChangedPayload{
		ReferenceNumber: r.ReferenceNumber,
		Status:          string(r.Status),
		Message:         message,
		TenantID:        r.TenantID,
	}
}
