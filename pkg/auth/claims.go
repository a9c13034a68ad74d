package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the subset of the provider's session token the API relies on.
type IdentityClaims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Picture  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller extracted from verified claims.
type Identity struct {
	Subject  string
	Email    string
	Name     string
	Username string
	Picture  string
}

// Identity converts verified claims into the context-carried identity.
func (c *IdentityClaims) Identity() Identity {
	return Identity{
		Subject:  c.Subject,
		Email:    c.Email,
		Name:     c.Name,
		Username: c.Username,
		Picture:  c.Picture,
	}
}
