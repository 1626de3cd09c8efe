package campushub

import "context"

type ctxKey string

const (
	ctxKeyIdentity  ctxKey = "campushub_identity"
	ctxKeyRole      ctxKey = "campushub_role"
	ctxKeyRequestID ctxKey = "campushub_request_id"
)

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(ctxKeyIdentity).(*Identity)
	return v
}

// WithRole stores the normalized role in the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role.Normalize())
}

// RoleFromContext extracts the role from the context.
func RoleFromContext(ctx context.Context) Role {
	v, _ := ctx.Value(ctxKeyRole).(Role)
	return v
}

// WithRequestID stores the outgoing request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
