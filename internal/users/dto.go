package users

import (
	"strings"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
)

// UpdateProfileInput is a field-level patch; nil fields are left untouched.
type UpdateProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=64"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

func (in UpdateProfileInput) fields() map[string]any {
	fields := map[string]any{}
	if in.Username != nil {
		fields["username"] = strings.TrimSpace(*in.Username)
	}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		fields["address"] = strings.TrimSpace(*in.Address)
	}
	return fields
}

// BootstrapInput carries optional overrides for the first-sign-in record.
type BootstrapInput struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=64"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
}

func newUserFromIdentity(identity auth.Identity, in BootstrapInput) *models.User {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	username := strings.TrimSpace(identity.Username)
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
	}
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	name := strings.TrimSpace(identity.Name)
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if name == "" {
		name = username
	}

	user := &models.User{
		Subject:  identity.Subject,
		Username: username,
		Email:    email,
		Name:     name,
	}
	if picture := strings.TrimSpace(identity.Picture); picture != "" {
		user.ImageURL = &picture
	}
	return user
}
