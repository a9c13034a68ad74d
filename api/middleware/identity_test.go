package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/auth/authtest"
)

func captureSubject(subject *string, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*subject = pkgAuth.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIdentityAttachesVerifiedSubject(t *testing.T) {
	provider := authtest.NewProvider(t)
	var subject string
	var called bool
	handler := Identity(provider.Verifier(t), nil)(captureSubject(&subject, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+provider.Token(t, "parent-1", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "parent-1", subject)
}

func TestIdentityAcceptsQueryTokenForStreams(t *testing.T) {
	provider := authtest.NewProvider(t)
	var subject string
	var called bool
	handler := Identity(provider.Verifier(t), nil)(captureSubject(&subject, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?access_token="+provider.Token(t, "parent-2", time.Hour), nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, called)
	assert.Equal(t, "parent-2", subject)
}

func TestIdentityLetsAnonymousRequestsThrough(t *testing.T) {
	provider := authtest.NewProvider(t)
	var subject string
	var called bool
	handler := Identity(provider.Verifier(t), nil)(captureSubject(&subject, &called))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	assert.True(t, called)
	assert.Empty(t, subject)
}

func TestIdentityRejectsInvalidToken(t *testing.T) {
	provider := authtest.NewProvider(t)
	other := authtest.NewProvider(t)
	var subject string
	var called bool
	handler := Identity(provider.Verifier(t), nil)(captureSubject(&subject, &called))

	for name, token := range map[string]string{
		"foreign signature": other.Token(t, "intruder", time.Hour),
		"expired":           provider.Token(t, "parent-1", -time.Minute),
		"garbage":           "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.False(t, called)
}
