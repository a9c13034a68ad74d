package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/uniformhub-backend/api/controllers"
	"github.com/angelmondragon/uniformhub-backend/api/middleware"
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
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

// RedisStore backs idempotency replays and public rate limits.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params collects everything the HTTP surface needs.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Verifier *pkgAuth.Verifier
	Guard    *access.Guard
	Redis    RedisStore
	Bus      *changefeed.Bus
	Ready    map[string]controllers.Pinger
	Now      func() time.Time

	Users              users.Service
	Categories         categories.Service
	Schools            schools.Service
	Products           products.Service
	Inventory          inventory.Service
	Notifications      notifications.Service
	AdminNotifications adminnotifications.Service
	Dashboard          dashboard.Service
	Payments           payments.Service
	Todos              todos.Service
	Orders             orders.Service
	Appointments       appointments.Service
	Contact            contact.Service
	Carts              *cart.Sessions
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()

	httpMetrics := metrics.NewHTTPMetrics(p.Registry)
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Identity(p.Verifier, logg),
	)

	searchPolicy := middleware.NewRateLimitPolicy("search", cfg.RateLimit.Window, cfg.RateLimit.SearchIPLimit, 0)
	contactPolicy := middleware.NewRateLimitPolicy("contact", cfg.RateLimit.Window, cfg.RateLimit.ContactLimit, cfg.RateLimit.ContactLimit)
	bookingPolicy := middleware.NewRateLimitPolicy("booking", cfg.RateLimit.Window, cfg.RateLimit.BookingLimit, cfg.RateLimit.BookingLimit)
	idempotent := middleware.Idempotency(p.Redis, logg, middleware.DefaultIdempotencyTTL)
	moneyIdempotent := middleware.Idempotency(p.Redis, logg, middleware.MoneyIdempotencyTTL)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(p.Categories, logg))
			r.Post("/", controllers.CreateCategory(p.Categories, logg))
			r.Get("/{categoryID}", controllers.GetCategory(p.Categories, logg))
			r.Patch("/{categoryID}", controllers.UpdateCategory(p.Categories, logg))
			r.Delete("/{categoryID}", controllers.DeleteCategory(p.Categories, logg))
		})

		r.Route("/schools", func(r chi.Router) {
			r.With(middleware.RateLimit(searchPolicy, p.Redis, logg)).Get("/", controllers.SearchSchools(p.Schools, logg))
			r.Post("/", controllers.CreateSchool(p.Schools, logg))
			r.Get("/by-slug/{slug}", controllers.GetSchoolBySlug(p.Schools, logg))
			r.Patch("/{schoolID}", controllers.UpdateSchool(p.Schools, logg))
			r.Delete("/{schoolID}", controllers.DeleteSchool(p.Schools, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.RateLimit(searchPolicy, p.Redis, logg)).Get("/", controllers.ListProducts(p.Products, logg))
			r.Post("/", controllers.CreateProduct(p.Products, logg))
			r.Get("/{productID}", controllers.GetProduct(p.Products, logg))
			r.Patch("/{productID}", controllers.UpdateProduct(p.Products, logg))
			r.Get("/{productID}/inventory-logs", controllers.ListInventoryLogs(p.Inventory, logg))
		})
		r.With(idempotent).Post("/inventory/logs", controllers.AddInventoryLog(p.Inventory, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.CurrentUser(p.Users, logg))
			r.Post("/", controllers.BootstrapUser(p.Users, logg))
			r.Patch("/", controllers.UpdateCurrentUser(p.Users, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.With(idempotent).Post("/", controllers.CreateNotification(p.Notifications, logg))
			r.Get("/stream", controllers.StreamNotifications(p.Notifications, p.Bus, p.Guard, p.Now, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(moneyIdempotent).Post("/", controllers.CreatePayment(p.Payments, logg))
			r.With(idempotent).Patch("/{paymentID}/status", controllers.UpdatePaymentStatus(p.Payments, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(moneyIdempotent).Post("/", controllers.CreateOrder(p.Orders, logg))
			r.Get("/", controllers.ListMyOrders(p.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(p.Orders, logg))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.With(middleware.RateLimit(bookingPolicy, p.Redis, logg), idempotent).Post("/", controllers.BookAppointment(p.Appointments, logg))
			r.Get("/mine", controllers.ListMyAppointments(p.Appointments, logg))
		})

		r.With(middleware.RateLimit(contactPolicy, p.Redis, logg)).Post("/contact", controllers.SubmitContactQuery(p.Contact, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(cfg.Cart.CookieName, cfg.Cart.SnapshotTTL, cfg.App.IsProd(), logg))
			r.Get("/", controllers.GetCart(p.Carts, logg))
			r.Delete("/", controllers.ClearCart(p.Carts, logg))
			r.Post("/items", controllers.AddCartItem(p.Carts, p.Products, logg))
			r.Patch("/items/{productID}", controllers.UpdateCartItem(p.Carts, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(p.Carts, logg))
		})

		r.Get("/changes", controllers.StreamChanges(p.Bus, p.Guard, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", controllers.DashboardStats(p.Dashboard, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListAdminNotifications(p.AdminNotifications, logg))
				r.Post("/", controllers.CreateAdminNotification(p.AdminNotifications, logg))
				r.Post("/read-all", controllers.MarkAllAdminNotificationsRead(p.AdminNotifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkAdminNotificationRead(p.AdminNotifications, logg))
				r.Delete("/{notificationID}", controllers.DeleteAdminNotification(p.AdminNotifications, logg))
			})

			r.Route("/todos", func(r chi.Router) {
				r.Get("/", controllers.ListTodos(p.Todos, logg))
				r.Post("/", controllers.CreateTodo(p.Todos, logg))
				r.Patch("/{todoID}", controllers.UpdateTodo(p.Todos, logg))
				r.Delete("/{todoID}", controllers.DeleteTodo(p.Todos, logg))
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", controllers.ListAppointments(p.Appointments, logg))
				r.Patch("/{appointmentID}/status", controllers.UpdateAppointmentStatus(p.Appointments, logg))
			})

			r.Route("/contact", func(r chi.Router) {
				r.Get("/", controllers.ListContactQueries(p.Contact, logg))
				r.Post("/{queryID}/resolve", controllers.ResolveContactQuery(p.Contact, logg))
			})
		})
	})

	return r
}
