package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/database/models"
	"github.com/hollis/reportline/internal/tenant"
)

const (
	TenantIDKey contextKey = "tenant_id"
	TenantKey   contextKey = "tenant"

	// TenantHeader names the tenant partition a request operates in.
	TenantHeader = "X-Tenant"
)

// Tenant resolves the partition for every request under it. A missing header
// is a client error and an unknown tenant is not found; no request ever
// falls through to a default partition.
func Tenant(directory *tenant.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := r.Header.Get(TenantHeader)
			if identifier == "" {
				http.Error(w, "Missing "+TenantHeader+" header", http.StatusBadRequest)
				return
			}

			t, err := directory.Resolve(r.Context(), identifier)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					http.Error(w, "Tenant not found", http.StatusNotFound)
					return
				}
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, t.ID)
			ctx = context.WithValue(ctx, TenantKey, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantID returns the resolved tenant id, or uuid.Nil outside the
// tenant-scoped routes.
func GetTenantID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(TenantIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetTenant returns the resolved tenant, or nil.
func GetTenant(ctx context.Context) *models.Tenant {
	if t, ok := ctx.Value(TenantKey).(*models.Tenant); ok {
		return t
	}
	return nil
}
