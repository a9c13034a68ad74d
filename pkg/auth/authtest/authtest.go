// Package authtest mints identity tokens signed by a throwaway RSA key.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "https://identity.test"

// Provider plays the external identity provider in tests.
type Provider struct {
	key *rsa.PrivateKey
	Cfg config.IdentityConfig
}

// NewProvider generates a signing key and the matching verifier configuration.
func NewProvider(t testing.TB) *Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &Provider{
		key: key,
		Cfg: config.IdentityConfig{PublicKeyPEM: string(block), Issuer: Issuer},
	}
}

// Verifier returns an auth.Verifier trusting this provider.
func (p *Provider) Verifier(t testing.TB) *auth.Verifier {
	t.Helper()
	verifier, err := auth.NewVerifier(p.Cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier
}

// Token signs a session token for subject valid for ttl.
func (p *Provider) Token(t testing.TB, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := auth.IdentityClaims{
		Email: subject + "@example.com",
		Name:  "Test " + subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
