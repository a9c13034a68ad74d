package dashboard

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CountFunc reports one aggregate for the dashboard.
type CountFunc func(ctx context.Context) (int64, error)

// Stats is the back-office overview.
type Stats struct {
	Users               int64           `json:"users"`
	Products            int64           `json:"products"`
	Categories          int64           `json:"categories"`
	Schools             int64           `json:"schools"`
	Orders              int64           `json:"orders"`
	Revenue             decimal.Decimal `json:"revenue"`
	UnreadNotifications int64           `json:"unread_notifications"`
	OpenTodos           int64           `json:"open_todos"`
	PendingAppointments int64           `json:"pending_appointments"`
	OpenContactQueries  int64           `json:"open_contact_queries"`
}

// Sources supplies each aggregate. Every field is required.
type Sources struct {
	Users               CountFunc
	Products            CountFunc
	Categories          CountFunc
	Schools             CountFunc
	Orders              CountFunc
	Revenue             func(ctx context.Context) (decimal.Decimal, error)
	UnreadNotifications CountFunc
	OpenTodos           CountFunc
	PendingAppointments CountFunc
	OpenContactQueries  CountFunc
}

// Service serves admin.getDashboardStats.
type Service interface {
	GetDashboardStats(ctx context.Context) (*Stats, error)
}

type service struct {
	sources Sources
	guard   *access.Guard
}

// NewService wires dashboard dependencies.
func NewService(sources Sources, guard *access.Guard) (Service, error) {
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	for _, agg := range sources.aggregates(&Stats{}) {
		if agg.count == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, agg.name+" source required")
		}
	}
	if sources.Revenue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "revenue source required")
	}
	return &service{sources: sources, guard: guard}, nil
}

// GetDashboardStats fails hard for non-admins and runs every aggregate in parallel.
func (s *service) GetDashboardStats(ctx context.Context) (*Stats, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*Stats, error) {
		stats := &Stats{}
		g, gctx := errgroup.WithContext(ctx)
		for _, agg := range s.sources.aggregates(stats) {
			g.Go(func() error {
				n, err := agg.count(gctx)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count "+agg.name)
				}
				*agg.dst = n
				return nil
			})
		}
		g.Go(func() error {
			revenue, err := s.sources.Revenue(gctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
			}
			stats.Revenue = revenue
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return stats, nil
	})
}

type aggregate struct {
	name  string
	count CountFunc
	dst   *int64
}

func (src Sources) aggregates(stats *Stats) []aggregate {
	return []aggregate{
		{"users", src.Users, &stats.Users},
		{"products", src.Products, &stats.Products},
		{"categories", src.Categories, &stats.Categories},
		{"schools", src.Schools, &stats.Schools},
		{"orders", src.Orders, &stats.Orders},
		{"unread notifications", src.UnreadNotifications, &stats.UnreadNotifications},
		{"open todos", src.OpenTodos, &stats.OpenTodos},
		{"pending appointments", src.PendingAppointments, &stats.PendingAppointments},
		{"open contact queries", src.OpenContactQueries, &stats.OpenContactQueries},
	}
}
