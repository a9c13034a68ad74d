package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/auth/authtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsProviderToken(t *testing.T) {
	provider := authtest.NewProvider(t)
	verifier := provider.Verifier(t)

	claims, err := verifier.Verify(provider.Token(t, "user_2abc", time.Hour))
	require.NoError(t, err)
	require.Equal(t, "user_2abc", claims.Subject)
	require.Equal(t, "user_2abc@example.com", claims.Identity().Email)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	provider := authtest.NewProvider(t)
	verifier := provider.Verifier(t)

	_, err := verifier.Verify(provider.Token(t, "user_2abc", -time.Hour))
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	trusted := authtest.NewProvider(t)
	foreign := authtest.NewProvider(t)

	_, err := trusted.Verifier(t).Verify(foreign.Token(t, "user_2abc", time.Hour))
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	provider := authtest.NewProvider(t)
	cfg := provider.Cfg
	cfg.Issuer = "https://other.example"
	verifier, err := auth.NewVerifier(cfg)
	require.NoError(t, err)

	_, err = verifier.Verify(provider.Token(t, "user_2abc", time.Hour))
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestVerifyRejectsHMACTokens(t *testing.T) {
	provider := authtest.NewProvider(t)
	claims := jwt.RegisteredClaims{Subject: "user", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = provider.Verifier(t).Verify(signed)
	require.Error(t, err)
}

func TestVerifyRequiresSubject(t *testing.T) {
	provider := authtest.NewProvider(t)

	_, err := provider.Verifier(t).Verify(provider.Token(t, "", time.Hour))
	require.ErrorIs(t, err, auth.ErrMissingSubject)
}

func TestNewVerifierRejectsGarbageKey(t *testing.T) {
	_, err := auth.NewVerifier(config.IdentityConfig{PublicKeyPEM: "-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----"})
	require.Error(t, err)

	_, err = auth.NewVerifier(config.IdentityConfig{})
	require.Error(t, err)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := auth.IdentityFromContext(ctx)
	require.False(t, ok)
	require.Empty(t, auth.SubjectFromContext(ctx))

	ctx = auth.WithIdentity(ctx, auth.Identity{Subject: "user_1"})
	identity, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "user_1", identity.Subject)
	require.Equal(t, "user_1", auth.SubjectFromContext(ctx))
}
