package access

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/google/uuid"
)

// UserLookup resolves the application user linked to an identity subject.
type UserLookup interface {
	FindBySubject(ctx context.Context, subject string) (*models.User, error)
}

// Principal is the caller as seen by an authorized operation.
type Principal struct {
	Subject string
	// User is nil when the subject has no application record yet.
	User *models.User
}

// Authenticated reports whether an identity subject was resolved.
func (p Principal) Authenticated() bool {
	return p.Subject != ""
}

// UserID returns the application user id or uuid.Nil.
func (p Principal) UserID() uuid.UUID {
	if p.User == nil {
		return uuid.Nil
	}
	return p.User.ID
}

// IsAdmin reports whether the resolved user carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.User.IsAdmin()
}

// Guard evaluates policies against the request context.
type Guard struct {
	users   UserLookup
	metrics *metrics.AuthzMetrics
	logg    *logger.Logger
}

// NewGuard wires the user lookup used for role checks.
func NewGuard(users UserLookup, authzMetrics *metrics.AuthzMetrics, logg *logger.Logger) (*Guard, error) {
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user lookup required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Guard{users: users, metrics: authzMetrics, logg: logg}, nil
}

// Authorize resolves the caller and enforces policy before any read or write runs.
func (g *Guard) Authorize(ctx context.Context, policy Policy) (Principal, error) {
	principal := Principal{Subject: auth.SubjectFromContext(ctx)}

	if policy.Requirement == RequirePublic {
		return principal, nil
	}
	if !principal.Authenticated() {
		return Principal{}, g.deny(ctx, policy, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
	}

	user, err := g.users.FindBySubject(ctx, principal.Subject)
	switch {
	case err == nil:
		principal.User = user
	case db.IsNotFound(err):
	default:
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve caller")
	}

	if policy.Requirement == RequireAdmin && !principal.IsAdmin() {
		return Principal{}, g.deny(ctx, policy, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
	}
	return principal, nil
}

func (g *Guard) deny(ctx context.Context, policy Policy, reason *pkgerrors.Error) error {
	g.metrics.IncDenied(string(policy.Requirement), string(policy.Mode))
	ctx = g.logg.WithFields(ctx, map[string]any{
		"policy": policy.String(),
		"reason": string(reason.Code()),
	})
	g.logg.Debug(ctx, "access.denied")
	if policy.Mode == Soft {
		return ErrSoftDenied
	}
	return reason
}

// Run authorizes policy and then invokes fn. Soft denials yield the zero value
// of T and a nil error.
func Run[T any](ctx context.Context, g *Guard, policy Policy, fn func(ctx context.Context, caller Principal) (T, error)) (T, error) {
	caller, err := g.Authorize(ctx, policy)
	if err != nil {
		var zero T
		if IsSoftDenied(err) {
			return zero, nil
		}
		return zero, err
	}
	return fn(ctx, caller)
}

// Do is Run for operations without a result.
func Do(ctx context.Context, g *Guard, policy Policy, fn func(ctx context.Context, caller Principal) error) error {
	_, err := Run(ctx, g, policy, func(ctx context.Context, caller Principal) (struct{}, error) {
		return struct{}{}, fn(ctx, caller)
	})
	return err
}
