package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hollis/reportline/internal/api/dto"
	"github.com/hollis/reportline/internal/api/handlers"
	"github.com/hollis/reportline/internal/api/middleware"
	"github.com/hollis/reportline/internal/auth"
	"github.com/hollis/reportline/internal/tenant"
	"github.com/hollis/reportline/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	logger := discardLogger()

	handler := handlers.NewAuthHandler(auth.NewService(tc.DB, tc.JWTService))
	directory := tenant.NewDirectory(tc.DB, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Tenant(directory))

		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)
		r.Post("/auth/forgot-password", handler.ForgotPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tc.JWTService))
			r.Get("/me", handler.Me)
		})
	})

	return r, tc
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("creates user and returns token", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "newuser@example.com",
			"password": "Securepassword123!",
			"name":     "New User",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/register", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, tc.Tenant.ID.String(), resp.User.TenantID)
		assert.Equal(t, "user", resp.User.Role)
	})

	t.Run("duplicate email within tenant conflicts", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "newuser@example.com",
			"password": "An0therpassword!",
			"name":     "Impostor",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/register", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("same email registers in another tenant", func(t *testing.T) {
		other := testutil.CreateTestTenant(t, tc.DB)

		body := map[string]interface{}{
			"email":    "newuser@example.com",
			"password": "An0therpassword!",
			"name":     "Same Person Elsewhere",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/register", body, other.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("rejects short password", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "short@example.com",
			"password": "short",
			"name":     "Short Password",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/register", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("valid credentials", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    tc.User.Email,
			"password": "testpassword123",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/login", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    tc.User.Email,
			"password": "wrongpassword",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/login", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("account does not exist in another tenant", func(t *testing.T) {
		other := testutil.CreateTestTenant(t, tc.DB)

		body := map[string]interface{}{
			"email":    tc.User.Email,
			"password": "testpassword123",
		}
		req := testutil.TenantRequest(t, "POST", "/api/auth/login", body, other.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("returns current user", func(t *testing.T) {
		req := testutil.TenantRequest(t, "GET", "/api/me", nil, tc.Tenant.Subdomain, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, tc.User.ID.String(), resp.ID)
	})

	t.Run("requires token", func(t *testing.T) {
		req := testutil.TenantRequest(t, "GET", "/api/me", nil, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	// Known and unknown addresses answer identically.
	for _, email := range []string{tc.User.Email, "stranger@example.com"} {
		body := map[string]interface{}{"email": email}
		req := testutil.TenantRequest(t, "POST", "/api/auth/forgot-password", body, tc.Tenant.Subdomain, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	}
}
