package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Header names carrying the caller identity.
const (
	HeaderOrgID  = "X-Org-Id"
	HeaderAppKey = "X-App-Key"
	HeaderUserID = "X-User-Id"
)

// Defaults applied when identity headers are absent.
const (
	DefaultOrgID = "default"
	DefaultAppID = "unknown"
)

// TenantMiddleware resolves the caller identity from request headers and
// stores it in the request context. Identity is never a reason to reject a
// request here; policy evaluation decides what an unknown app may do.
type TenantMiddleware struct {
	logger *zap.Logger
}

// NewTenantMiddleware creates a new tenant resolution middleware
func NewTenantMiddleware(logger *zap.Logger) *TenantMiddleware {
	return &TenantMiddleware{logger: logger}
}

// Handler extracts X-Org-Id, X-App-Key and X-User-Id into a Tenant
func (m *TenantMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := Tenant{
			OrgID:  r.Header.Get(HeaderOrgID),
			AppID:  r.Header.Get(HeaderAppKey),
			UserID: r.Header.Get(HeaderUserID),
		}
		if tenant.OrgID == "" {
			tenant.OrgID = DefaultOrgID
		}
		if tenant.AppID == "" {
			tenant.AppID = DefaultAppID
			m.logger.Debug("request without app key, treating as unknown app",
				zap.String("path", r.URL.Path))
		}

		ctx := WithTenant(r.Context(), tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
