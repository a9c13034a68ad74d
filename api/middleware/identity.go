package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/uniformhub-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

type tokenVerifier interface {
	Verify(token string) (*pkgAuth.IdentityClaims, error)
}

// Identity verifies an optional bearer token and seeds the request context with
// the provider identity. Requests without credentials continue anonymously;
// the access guard decides per handler whether that is acceptable.
func Identity(verifier tokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			identity := claims.Identity()
			ctx := pkgAuth.WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithSubject(ctx, identity.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		// EventSource cannot set headers, so streams accept the token as a query parameter.
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
