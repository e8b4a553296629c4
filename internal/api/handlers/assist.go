package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/api/dto"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/assist"
)

type AssistHandler struct {
	gateway *assist.Gateway
}

func NewAssistHandler(gateway *assist.Gateway) *AssistHandler {
	return &AssistHandler{gateway: gateway}
}

// Tasks handles GET /api/ai/tasks
func (h *AssistHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tasks": assist.TaskTypes()})
}

// Assist handles POST /api/ai/assist. Available to anonymous reporters, so
// authentication is optional; a signed-in caller gets attributed in the
// usage ledger.
func (h *AssistHandler) Assist(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req dto.AssistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	gwReq := assist.Request{
		TenantID: tenantID,
		TaskType: req.Task,
		Input:    req.Text,
		Identity: middleware.AssistIdentity(r),
	}
	if userID := middleware.GetUserID(r.Context()); userID != uuid.Nil {
		gwReq.UserID = &userID
	}
	if req.ReportID != "" {
		if reportID, err := uuid.Parse(req.ReportID); err == nil {
			gwReq.ReportID = &reportID
		}
	}

	resp, err := h.gateway.Assist(r.Context(), gwReq)
	if err != nil {
		h.writeAssistError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AssistHandler) writeAssistError(w http.ResponseWriter, err error) {
	var unknownTask *assist.UnknownTaskError
	var rateLimited *assist.RateLimitedError

	switch {
	case errors.As(err, &unknownTask):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: unknownTask.Error()})
	case errors.Is(err, assist.ErrInputTooShort):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Text must be at least " + strconv.Itoa(assist.MinInputChars) + " characters",
		})
	case errors.Is(err, assist.ErrInputTooLong):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Text must be at most " + strconv.Itoa(assist.MaxInputChars) + " characters",
		})
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(rateLimited.RetryAt).Seconds())+1, 10))
		writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{Error: "Rate limit exceeded"})
	case errors.Is(err, assist.ErrUpstreamUnavailable):
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Assistance service is unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Assist failed"})
	}
}
