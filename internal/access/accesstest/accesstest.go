// Package accesstest builds guards and signed-in contexts over a sqlite store.
package accesstest

import (
	"context"
	"testing"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/users"
	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"gorm.io/gorm"
)

// Logger discards output.
func Logger() *logger.Logger {
	return logger.Nop()
}

// Guard resolves callers against the users table in conn.
func Guard(t testing.TB, conn *gorm.DB) *access.Guard {
	t.Helper()
	guard, err := access.NewGuard(users.NewRepository(conn), nil, Logger())
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return guard
}

// SeedUser inserts an application user for subject.
func SeedUser(t testing.TB, conn *gorm.DB, subject string, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Subject:  subject,
		Username: subject,
		Email:    subject + "@example.com",
		Name:     "Test " + subject,
		Role:     role,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// As returns a context signed in as subject.
func As(subject string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		Subject: subject,
		Email:   subject + "@example.com",
		Name:    "Test " + subject,
	})
}

// AsUser returns a context signed in as the seeded user.
func AsUser(user *models.User) context.Context {
	return As(user.Subject)
}

// Anonymous returns a signed-out context.
func Anonymous() context.Context {
	return context.Background()
}
