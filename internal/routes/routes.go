package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/soko-digital/soko/internal/auth"
	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/checkout"
	"github.com/soko-digital/soko/internal/config"
	"github.com/soko-digital/soko/internal/identity"
	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/middleware"
	"github.com/soko-digital/soko/internal/notification"
	"github.com/soko-digital/soko/internal/order"
	"github.com/soko-digital/soko/internal/topup"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores: Postgres when a database is configured, in-memory otherwise.
	var (
		ledgerStore  ledger.Store
		invStore     inventory.Store
		orderStore   order.Store
		catalogRepo  catalog.Repository
		identityRepo identity.Repository
		topupStore   topup.Store
		settler      checkout.Settler
	)
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		invStore = inventory.NewPostgresStore(d.DB)
		orderStore = order.NewPostgresStore(d.DB)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		topupStore = topup.NewPostgresStore(d.DB)
		settler = checkout.NewPostgresSettler(d.DB)
	} else {
		memLedger := ledger.NewMemoryStore()
		memInv := inventory.NewMemoryStore()
		memOrders := order.NewMemoryStore()
		ledgerStore = memLedger
		invStore = memInv
		orderStore = memOrders
		catalogRepo = catalog.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		topupStore = topup.NewMemoryStore(memLedger)
		settler = checkout.NewMemorySettler(memLedger, memInv, memOrders)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	counts := inventory.NewCountCache(d.Cache, time.Minute)

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	checkoutSvc := checkout.NewService(catalogRepo, settler, notifier, counts, d.Cfg.MaxQuantity)
	topupSvc := topup.NewService(topupStore, notifier, d.Cfg.MaxPendingTopups)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, ledgerStore, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter, middleware.JWTAuth(d.Cfg, identityRepo))
	RegisterCatalogRoutes(api, catalogRepo, invStore, counts)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	RegisterWalletRoutes(protected, ledgerStore)
	RegisterCheckoutRoutes(protected, checkoutSvc, orderStore)
	RegisterTopupRoutes(protected, topupSvc)

	// Admin routes
	admin := api.Group("/admin", jwtmw, middleware.RequireAdmin())
	RegisterAdminRoutes(admin, catalogRepo, invStore, counts, topupSvc, d.Logger)

	return nil
}
