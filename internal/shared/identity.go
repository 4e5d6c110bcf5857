package shared

import (
	"net/http"

	"github.com/google/uuid"
)

// Header names populated by the upstream identity provider. The gateway
// authenticates the session and forwards the resolved identity; this service
// trusts the values as given.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderRegimeID = "X-Regime-ID"
)

// DefaultRegimeID is assumed when the gateway omits the regime header. Two
// accounting regimes exist; tenants on the second always carry the header.
const DefaultRegimeID = "c200"

// Identity describes the authenticated caller of a request.
type Identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	RegimeID string
}

// IdentityMiddleware resolves the caller identity from trusted gateway
// headers and rejects requests without a tenant.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.Header.Get(HeaderTenantID))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		userID, err := uuid.Parse(r.Header.Get(HeaderUserID))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		regimeID := r.Header.Get(HeaderRegimeID)
		if regimeID == "" {
			regimeID = DefaultRegimeID
		}
		id := &Identity{TenantID: tenantID, UserID: userID, RegimeID: regimeID}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}
