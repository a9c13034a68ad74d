package access

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeLookup struct {
	users map[string]*models.User
	err   error
	calls int
}

func (f *fakeLookup) FindBySubject(ctx context.Context, subject string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if user, ok := f.users[subject]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestGuard(t *testing.T, lookup *fakeLookup) (*Guard, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	guard, err := NewGuard(lookup, metrics.NewAuthzMetrics(reg), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return guard, reg
}

func withSubject(subject string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{Subject: subject})
}

func seededLookup() *fakeLookup {
	return &fakeLookup{users: map[string]*models.User{
		"admin_sub":  {ID: uuid.New(), Subject: "admin_sub", Role: enums.UserRoleAdmin},
		"parent_sub": {ID: uuid.New(), Subject: "parent_sub", Role: enums.UserRoleUser},
	}}
}

func TestPublicPolicyNeverResolvesUser(t *testing.T) {
	lookup := seededLookup()
	guard, _ := newTestGuard(t, lookup)

	principal, err := guard.Authorize(context.Background(), Public)
	require.NoError(t, err)
	require.False(t, principal.Authenticated())

	principal, err = guard.Authorize(withSubject("parent_sub"), Public)
	require.NoError(t, err)
	require.Equal(t, "parent_sub", principal.Subject)
	require.Zero(t, lookup.calls)
}

func TestIdentityHardRequiresSubject(t *testing.T) {
	guard, reg := newTestGuard(t, seededLookup())

	_, err := guard.Authorize(context.Background(), IdentityHard)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Equal(t, 1.0, deniedCount(t, reg, "identity", "hard"))
}

func TestIdentityAllowsSubjectWithoutRecord(t *testing.T) {
	guard, _ := newTestGuard(t, seededLookup())

	principal, err := guard.Authorize(withSubject("newcomer"), IdentityHard)
	require.NoError(t, err)
	require.Nil(t, principal.User)
	require.Equal(t, uuid.Nil, principal.UserID())
}

func TestAdminHardForbidsRegularUsers(t *testing.T) {
	guard, _ := newTestGuard(t, seededLookup())

	_, err := guard.Authorize(withSubject("parent_sub"), AdminHard)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = guard.Authorize(withSubject("unknown_sub"), AdminHard)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	principal, err := guard.Authorize(withSubject("admin_sub"), AdminHard)
	require.NoError(t, err)
	require.True(t, principal.IsAdmin())
}

func TestSoftPoliciesReportSoftDenial(t *testing.T) {
	guard, reg := newTestGuard(t, seededLookup())

	_, err := guard.Authorize(context.Background(), IdentitySoft)
	require.True(t, IsSoftDenied(err))
	require.Nil(t, pkgerrors.As(err))

	_, err = guard.Authorize(withSubject("parent_sub"), AdminSoft)
	require.True(t, IsSoftDenied(err))
	require.Equal(t, 1.0, deniedCount(t, reg, "admin", "soft"))
}

func TestLookupFailureIsNotADenial(t *testing.T) {
	guard, _ := newTestGuard(t, &fakeLookup{err: errors.New("connection reset")})

	_, err := guard.Authorize(withSubject("admin_sub"), AdminSoft)
	require.False(t, IsSoftDenied(err))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestRunSkipsFnOnDenial(t *testing.T) {
	guard, _ := newTestGuard(t, seededLookup())
	called := false
	fn := func(ctx context.Context, caller Principal) ([]string, error) {
		called = true
		return []string{"secret"}, nil
	}

	rows, err := Run(withSubject("parent_sub"), guard, AdminSoft, fn)
	require.NoError(t, err)
	require.Nil(t, rows)
	require.False(t, called)

	_, err = Run(context.Background(), guard, AdminHard, fn)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.False(t, called)

	rows, err = Run(withSubject("admin_sub"), guard, AdminSoft, fn)
	require.NoError(t, err)
	require.Equal(t, []string{"secret"}, rows)
}

func TestDoPropagatesFnError(t *testing.T) {
	guard, _ := newTestGuard(t, seededLookup())
	boom := pkgerrors.NotFound("todo")

	err := Do(withSubject("admin_sub"), guard, AdminHard, func(ctx context.Context, caller Principal) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func deniedCount(t *testing.T, reg *prometheus.Registry, requirement, mode string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "authz_denied_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["requirement"] == requirement && labels["mode"] == mode {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("no authz_denied_total{requirement=%q,mode=%q}", requirement, mode)
	return 0
}
