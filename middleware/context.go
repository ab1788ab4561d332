package middleware

import "context"

// Context key type to avoid collisions
type contextKey string

const (
	// TenantKey is the context key for the resolved tenant identity
	TenantKey contextKey = "tenant"
)

// Tenant is the caller identity resolved from request headers. Missing
// headers fall back to defaults so that policy evaluation and audit always
// have an attributable identity.
type Tenant struct {
	OrgID  string
	AppID  string
	UserID string
}

// GetTenantFromContext retrieves the tenant identity from context
func GetTenantFromContext(ctx context.Context) Tenant {
	if val := ctx.Value(TenantKey); val != nil {
		if tenant, ok := val.(Tenant); ok {
			return tenant
		}
	}
	return Tenant{OrgID: DefaultOrgID, AppID: DefaultAppID}
}

// WithTenant adds a tenant identity to the context
func WithTenant(ctx context.Context, tenant Tenant) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}
