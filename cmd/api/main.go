package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/uniformhub-backend/api/controllers"
	"github.com/angelmondragon/uniformhub-backend/api/routes"
	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/internal/appointments"
	"github.com/angelmondragon/uniformhub-backend/internal/cart"
	"github.com/angelmondragon/uniformhub-backend/internal/categories"
	"github.com/angelmondragon/uniformhub-backend/internal/contact"
	"github.com/angelmondragon/uniformhub-backend/internal/dashboard"
	"github.com/angelmondragon/uniformhub-backend/internal/inventory"
	"github.com/angelmondragon/uniformhub-backend/internal/notifications"
	"github.com/angelmondragon/uniformhub-backend/internal/orders"
	"github.com/angelmondragon/uniformhub-backend/internal/payments"
	"github.com/angelmondragon/uniformhub-backend/internal/products"
	"github.com/angelmondragon/uniformhub-backend/internal/schools"
	"github.com/angelmondragon/uniformhub-backend/internal/todos"
	"github.com/angelmondragon/uniformhub-backend/internal/users"
	pkgAuth "github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/angelmondragon/uniformhub-backend/pkg/migrate"
	"github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.AutoUp(ctx, cfg, dbClient, logg)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	verifier, err := pkgAuth.NewVerifier(cfg.Identity)
	requireResource(ctx, logg, "identity verifier", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	bus := changefeed.NewBus(changefeed.NewRedisBroker(redisClient), logg)

	usersRepo := users.NewRepository(conn)
	guard, err := access.NewGuard(usersRepo, metrics.NewAuthzMetrics(registry), logg)
	requireResource(ctx, logg, "access guard", err)

	adminNotificationsRepo := adminnotifications.NewRepository(conn)
	notices := adminnotifications.NewEmitter(adminNotificationsRepo)
	categoriesRepo := categories.NewRepository(conn)
	schoolsRepo := schools.NewRepository(conn)
	productsRepo := products.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	todosRepo := todos.NewRepository(conn)
	contactRepo := contact.NewRepository(conn)
	appointmentsRepo := appointments.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)

	usersService, err := users.NewService(usersRepo, guard)
	requireResource(ctx, logg, "users service", err)
	categoriesService, err := categories.NewService(categoriesRepo, dbClient, notices, guard, bus)
	requireResource(ctx, logg, "categories service", err)
	schoolsService, err := schools.NewService(schoolsRepo, guard, bus)
	requireResource(ctx, logg, "schools service", err)
	productsService, err := products.NewService(productsRepo, schoolsRepo, categoriesRepo, guard, bus)
	requireResource(ctx, logg, "products service", err)
	inventoryService, err := inventory.NewService(inventory.NewRepository(conn), productsRepo, guard)
	requireResource(ctx, logg, "inventory service", err)
	notificationsService, err := notifications.NewService(notificationsRepo, usersRepo, guard, bus)
	requireResource(ctx, logg, "notifications service", err)
	adminNotificationsService, err := adminnotifications.NewService(adminNotificationsRepo, guard, bus)
	requireResource(ctx, logg, "admin notifications service", err)
	ordersService, err := orders.NewService(ordersRepo, productsRepo, dbClient, notices, guard, bus)
	requireResource(ctx, logg, "orders service", err)
	paymentsService, err := payments.NewService(payments.NewRepository(conn), ordersRepo, dbClient, guard)
	requireResource(ctx, logg, "payments service", err)
	todosService, err := todos.NewService(todosRepo, dbClient, notices, guard, bus)
	requireResource(ctx, logg, "todos service", err)
	contactService, err := contact.NewService(contactRepo, dbClient, notices, guard, bus)
	requireResource(ctx, logg, "contact service", err)
	appointmentsService, err := appointments.NewService(appointments.ServiceParams{
		Repo:      appointmentsRepo,
		Users:     usersRepo,
		Schools:   schoolsRepo,
		Inbox:     notificationsRepo,
		Tx:        dbClient,
		Notices:   notices,
		Guard:     guard,
		Publisher: bus,
	})
	requireResource(ctx, logg, "appointments service", err)
	dashboardService, err := dashboard.NewService(dashboard.Sources{
		Users:               usersRepo.Count,
		Products:            productsRepo.Count,
		Categories:          categoriesRepo.Count,
		Schools:             schoolsRepo.Count,
		Orders:              ordersRepo.Count,
		Revenue:             ordersRepo.Revenue,
		UnreadNotifications: adminNotificationsRepo.CountUnread,
		OpenTodos:           todosRepo.CountOpen,
		PendingAppointments: func(ctx context.Context) (int64, error) {
			return appointmentsRepo.CountByStatus(ctx, enums.AppointmentStatusPending)
		},
		OpenContactQueries: contactRepo.CountUnresolved,
	}, guard)
	requireResource(ctx, logg, "dashboard service", err)

	carts, err := cart.NewSessions(func(session string) cart.Storage {
		return cart.NewRedisStorage(redisClient, session, cfg.Cart.SnapshotTTL)
	}, logg, metrics.NewCartMetrics(registry))
	requireResource(ctx, logg, "cart sessions", err)

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			Registry: registry,
			Verifier: verifier,
			Guard:    guard,
			Redis:    redisClient,
			Bus:      bus,
			Ready: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Now:                time.Now,
			Users:              usersService,
			Categories:         categoriesService,
			Schools:            schoolsService,
			Products:           productsService,
			Inventory:          inventoryService,
			Notifications:      notificationsService,
			AdminNotifications: adminNotificationsService,
			Dashboard:          dashboardService,
			Payments:           paymentsService,
			Todos:              todosService,
			Orders:             ordersService,
			Appointments:       appointmentsService,
			Contact:            contactService,
			Carts:              carts,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
