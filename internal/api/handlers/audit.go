package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/api/dto"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/audit"
)

type AuditHandler struct {
	ledger *audit.Ledger
}

func NewAuditHandler(ledger *audit.Ledger) *AuditHandler {
	return &AuditHandler{ledger: ledger}
}

// List handles GET /api/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	filter := audit.ListFilter{
		Action: r.URL.Query().Get("action"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if userIDStr := r.URL.Query().Get("user_id"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
			return
		}
		filter.UserID = &userID
	}

	entries, err := h.ledger.List(r.Context(), tenantID, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list audit entries"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// Usage handles GET /api/audit/usage
func (h *AuditHandler) Usage(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.ledger.ListUsage(r.Context(), tenantID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list usage records"})
		return
	}

	writeJSON(w, http.StatusOK, rows)
}
