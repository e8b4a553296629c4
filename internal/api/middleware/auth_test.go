package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/reportline/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_ValidToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	userID := uuid.New()
	tenantID := uuid.New()
	email := "test@example.com"
	role := "manager"

	token, err := jwtService.GenerateToken(userID, tenantID, email, role)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify context values are set
		assert.Equal(t, userID, GetUserID(r.Context()))
		assert.Equal(t, email, GetUserEmail(r.Context()))
		assert.Equal(t, role, GetUserRole(r.Context()))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), TenantIDKey, tenantID))
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_TenantMismatch(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	// Token minted for one tenant, request resolved to another.
	token, err := jwtService.GenerateToken(uuid.New(), uuid.New(), "test@example.com", "admin")
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for cross-tenant token")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), TenantIDKey, uuid.New()))
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_NoToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestAuth_InvalidToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	// Create service with 1 nanosecond expiration
	jwtService := auth.NewJWTService("test-secret", 1*time.Nanosecond)

	token, err := jwtService.GenerateToken(uuid.New(), uuid.New(), "test@example.com", "admin")
	require.NoError(t, err)

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for expired token")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_TokenFromDifferentSecret(t *testing.T) {
	jwtService1 := auth.NewJWTService("secret-1", 24*time.Hour)
	jwtService2 := auth.NewJWTService("secret-2", 24*time.Hour)

	// Generate token with service1
	token, err := jwtService1.GenerateToken(uuid.New(), uuid.New(), "test@example.com", "admin")
	require.NoError(t, err)

	// Try to validate with service2 (different secret)
	handler := Auth(jwtService2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for token with different secret")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_NoToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	handler := OptionalAuth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, uuid.Nil, GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/reports", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	userID := uuid.New()
	tenantID := uuid.New()
	token, err := jwtService.GenerateToken(userID, tenantID, "test@example.com", "user")
	require.NoError(t, err)

	handler := OptionalAuth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userID, GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/reports", nil)
	req = req.WithContext(context.WithValue(req.Context(), TenantIDKey, tenantID))
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_CrossTenantTokenDropped(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	token, err := jwtService.GenerateToken(uuid.New(), uuid.New(), "test@example.com", "user")
	require.NoError(t, err)

	handler := OptionalAuth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Request proceeds anonymously, the foreign claims are discarded.
		assert.Equal(t, uuid.Nil, GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/reports", nil)
	req = req.WithContext(context.WithValue(req.Context(), TenantIDKey, uuid.New()))
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserID_FromContext(t *testing.T) {
	userID := uuid.New()
	ctx := context.WithValue(context.Background(), UserIDKey, userID)

	result := GetUserID(ctx)
	assert.Equal(t, userID, result)
}

func TestGetUserID_NotInContext(t *testing.T) {
	ctx := context.Background()

	result := GetUserID(ctx)
	assert.Equal(t, uuid.Nil, result)
}

func TestGetUserEmail_FromContext(t *testing.T) {
	email := "test@example.com"
	ctx := context.WithValue(context.Background(), UserEmailKey, email)

	result := GetUserEmail(ctx)
	assert.Equal(t, email, result)
}

func TestGetUserRole_NotInContext(t *testing.T) {
	ctx := context.Background()

	result := GetUserRole(ctx)
	assert.Equal(t, "", result)
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	tests := []struct {
		name           string
		userRole       string
		requiredRoles  []string
		expectedStatus int
	}{
		{
			name:           "admin_has_access",
			userRole:       "admin",
			requiredRoles:  []string{"admin", "compliance"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "compliance_has_access",
			userRole:       "compliance",
			requiredRoles:  []string{"admin", "compliance"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "user_denied",
			userRole:       "user",
			requiredRoles:  []string{"admin", "compliance"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "manager_denied_audit_access",
			userRole:       "manager",
			requiredRoles:  []string{"admin", "compliance"},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID := uuid.New()
			token, err := jwtService.GenerateToken(uuid.New(), tenantID, "test@example.com", tt.userRole)
			require.NoError(t, err)

			authMiddleware := Auth(jwtService)
			roleMiddleware := RequireRole(tt.requiredRoles...)

			handler := authMiddleware(roleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest("GET", "/api/audit", nil)
			req = req.WithContext(context.WithValue(req.Context(), TenantIDKey, tenantID))
			req.Header.Set("Authorization", "Bearer "+token)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
