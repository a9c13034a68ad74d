package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSubject is returned when a verified token has no subject claim.
	ErrMissingSubject = errors.New("identity token missing subject")
	jwtSigningMethod  = jwt.SigningMethodRS256
)

// Verifier validates session tokens issued by the external identity provider.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

// NewVerifier parses the provider public key and prepares the token parser.
func NewVerifier(cfg config.IdentityConfig) (*Verifier, error) {
	pem := strings.TrimSpace(strings.ReplaceAll(cfg.PublicKeyPEM, `\n`, "\n"))
	if pem == "" {
		return nil, fmt.Errorf("identity public key is required")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parsing identity public key: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{key: key, parser: jwt.NewParser(opts...)}, nil
}

// Verify validates the signature and registered claims of tokenString.
func (v *Verifier) Verify(tokenString string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
