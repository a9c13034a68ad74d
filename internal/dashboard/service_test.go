package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/uniformhub-backend/internal/access/accesstest"
	"github.com/angelmondragon/uniformhub-backend/internal/dashboard"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int64) dashboard.CountFunc {
	return func(context.Context) (int64, error) { return n, nil }
}

func sources() dashboard.Sources {
	return dashboard.Sources{
		Users:               constant(12),
		Products:            constant(40),
		Categories:          constant(6),
		Schools:             constant(3),
		Orders:              constant(9),
		Revenue:             func(context.Context) (decimal.Decimal, error) { return decimal.RequireFromString("1234.50"), nil },
		UnreadNotifications: constant(2),
		OpenTodos:           constant(4),
		PendingAppointments: constant(1),
		OpenContactQueries:  constant(5),
	}
}

func TestGetDashboardStats(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := dashboard.NewService(sources(), accesstest.Guard(t, conn))
	require.NoError(t, err)
	admin := accesstest.SeedUser(t, conn, "admin_1", enums.UserRoleAdmin)

	stats, err := svc.GetDashboardStats(accesstest.AsUser(admin))
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats.Users)
	assert.EqualValues(t, 40, stats.Products)
	assert.EqualValues(t, 6, stats.Categories)
	assert.EqualValues(t, 3, stats.Schools)
	assert.EqualValues(t, 9, stats.Orders)
	assert.EqualValues(t, 2, stats.UnreadNotifications)
	assert.EqualValues(t, 4, stats.OpenTodos)
	assert.EqualValues(t, 1, stats.PendingAppointments)
	assert.EqualValues(t, 5, stats.OpenContactQueries)
	assert.True(t, stats.Revenue.Equal(decimal.RequireFromString("1234.5")))
}

func TestGetDashboardStatsFailsHard(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := dashboard.NewService(sources(), accesstest.Guard(t, conn))
	require.NoError(t, err)
	parent := accesstest.SeedUser(t, conn, "parent_1", enums.UserRoleUser)

	stats, err := svc.GetDashboardStats(accesstest.AsUser(parent))
	assert.Nil(t, stats)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = svc.GetDashboardStats(accesstest.Anonymous())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestGetDashboardStatsPropagatesSourceErrors(t *testing.T) {
	conn := dbtest.Open(t)
	src := sources()
	src.Orders = func(context.Context) (int64, error) { return 0, errors.New("connection reset") }
	svc, err := dashboard.NewService(src, accesstest.Guard(t, conn))
	require.NoError(t, err)
	admin := accesstest.SeedUser(t, conn, "admin_1", enums.UserRoleAdmin)

	_, err = svc.GetDashboardStats(accesstest.AsUser(admin))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresEverySource(t *testing.T) {
	conn := dbtest.Open(t)
	src := sources()
	src.OpenTodos = nil
	_, err := dashboard.NewService(src, accesstest.Guard(t, conn))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
