package auth

import "context"

type identityKey struct{}

// WithIdentity stores the verified caller on the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the verified caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || identity.Subject == "" {
		return Identity{}, false
	}
	return identity, true
}

// SubjectFromContext returns the identity subject or "" when anonymous.
func SubjectFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.Subject
}
