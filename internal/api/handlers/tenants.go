package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hollis/reportline/internal/api/dto"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/api/validation"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/tenant"
)

type TenantHandler struct {
	directory *tenant.Directory

	// provisionToken guards the cross-tenant provisioning endpoint. Empty
	// means provisioning is open, which is only sensible in development.
	provisionToken string
}

func NewTenantHandler(directory *tenant.Directory, provisionToken string) *TenantHandler {
	return &TenantHandler{directory: directory, provisionToken: provisionToken}
}

// TenantResponse exposes the partition's public profile. Internal routing
// emails stay server-side.
type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	Plan      string `json:"plan"`
}

func tenantToResponse(t *models.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Subdomain: t.Subdomain,
		Plan:      string(t.Plan),
	}
}

// Current handles GET /api/tenants/current
func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request) {
	t := middleware.GetTenant(r.Context())
	if t == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Tenant not found"})
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

type ProvisionRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contact_email"`
	AdminEmail   string `json:"admin_email"`
	OpsEmail     string `json:"ops_email,omitempty"`
	Plan         string `json:"plan,omitempty"`
}

func (r ProvisionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if r.Subdomain == "" {
		errors["subdomain"] = "Subdomain is required"
	} else if !validation.IsValidSubdomain(r.Subdomain) {
		errors["subdomain"] = "Subdomain must be lowercase letters, digits, and dashes"
	}
	if r.AdminEmail == "" {
		errors["admin_email"] = "Admin email is required"
	} else if !validation.IsValidEmail(r.AdminEmail) {
		errors["admin_email"] = "Email format is invalid"
	}

	return errors
}

// Provision handles POST /api/tenants. This endpoint sits outside the
// tenant-scoped routes because it creates the partition itself.
func (h *TenantHandler) Provision(w http.ResponseWriter, r *http.Request) {
	if h.provisionToken != "" && r.Header.Get("X-Provision-Token") != h.provisionToken {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	t, err := h.directory.Provision(r.Context(), tenant.ProvisionInput{
		Name:         req.Name,
		Subdomain:    req.Subdomain,
		ContactEmail: req.ContactEmail,
		AdminEmail:   req.AdminEmail,
		OpsEmail:     req.OpsEmail,
		Plan:         models.PlanTier(req.Plan),
	})
	if err != nil {
		if errors.Is(err, tenant.ErrSubdomainTaken) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Subdomain already in use"})
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, tenantToResponse(t))
}
