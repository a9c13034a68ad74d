package users

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
)

// Service exposes self-service profile operations and the identity bootstrap.
type Service interface {
	// Current returns the caller's record, or nil when signed out or not yet bootstrapped.
	Current(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.User, error)
	// Bootstrap creates the caller's record on first sign-in. Repeated calls return the same row.
	Bootstrap(ctx context.Context, input BootstrapInput) (*models.User, error)
	// Promote grants the admin role. Operator tooling only; not routed over HTTP.
	Promote(ctx context.Context, email string) (*models.User, error)
}

type service struct {
	repo  Repository
	guard *access.Guard
}

// NewService wires users dependencies.
func NewService(repo Repository, guard *access.Guard) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	return &service{repo: repo, guard: guard}, nil
}

func (s *service) Current(ctx context.Context) (*models.User, error) {
	return access.Run(ctx, s.guard, access.IdentitySoft, func(ctx context.Context, caller access.Principal) (*models.User, error) {
		return caller.User, nil
	})
}

func (s *service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.User, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.User, error) {
		if caller.User == nil {
			return nil, pkgerrors.NotFound("user")
		}
		updated, err := s.repo.Update(ctx, caller.User.ID, input.fields())
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("user")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
		return updated, nil
	})
}

func (s *service) Bootstrap(ctx context.Context, input BootstrapInput) (*models.User, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.User, error) {
		if caller.User != nil {
			return caller.User, nil
		}
		identity, _ := auth.IdentityFromContext(ctx)
		user := newUserFromIdentity(identity, input)
		if user.Email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity token carries no email")
		}

		if err := s.repo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				// A concurrent bootstrap for the same subject won the insert.
				existing, findErr := s.repo.FindBySubject(ctx, caller.Subject)
				if findErr == nil {
					return existing, nil
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return user, nil
	})
}

func (s *service) Promote(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	if user.Role == enums.UserRoleAdmin {
		return user, nil
	}
	if err := s.repo.SetRole(ctx, user.ID, enums.UserRoleAdmin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote user")
	}
	user.Role = enums.UserRoleAdmin
	return user, nil
}
