package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIdentityMiddleware(t *testing.T) {
	var captured *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = IdentityFromContext(r.Context())
	})
	handler := IdentityMiddleware(next)

	tenantID, userID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/periods", nil)
	req.Header.Set(HeaderTenantID, tenantID.String())
	req.Header.Set(HeaderUserID, userID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	require.Equal(t, tenantID, captured.TenantID)
	require.Equal(t, userID, captured.UserID)
	require.Equal(t, DefaultRegimeID, captured.RegimeID)
}

func TestIdentityMiddlewareRegimeHeader(t *testing.T) {
	var captured *Identity
	handler := IdentityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/periods", nil)
	req.Header.Set(HeaderTenantID, uuid.New().String())
	req.Header.Set(HeaderUserID, uuid.New().String())
	req.Header.Set(HeaderRegimeID, "c133")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	require.Equal(t, "c133", captured.RegimeID)
}

func TestIdentityMiddlewareRejectsMissingHeaders(t *testing.T) {
	handler := IdentityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/periods", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/periods", nil)
	req.Header.Set(HeaderTenantID, "not-a-uuid")
	req.Header.Set(HeaderUserID, uuid.New().String())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
