package router

import (
	"net/http"

	"stockhouse-backend/internal/application/advisor"
	authsvc "stockhouse-backend/internal/application/auth"
	"stockhouse-backend/internal/application/equity"
	healthsvc "stockhouse-backend/internal/application/health"
	"stockhouse-backend/internal/application/oracle"
	"stockhouse-backend/internal/application/portfolio"
	propsvc "stockhouse-backend/internal/application/properties"
	"stockhouse-backend/internal/application/trading"
	txsvc "stockhouse-backend/internal/application/transactions"
	walletsvc "stockhouse-backend/internal/application/wallet"
	"stockhouse-backend/internal/config"
	"stockhouse-backend/internal/constants"
	authhandler "stockhouse-backend/internal/interfaces/handlers/auth"
	chathandler "stockhouse-backend/internal/interfaces/handlers/chat"
	healthhandler "stockhouse-backend/internal/interfaces/handlers/health"
	prophandler "stockhouse-backend/internal/interfaces/handlers/properties"
	txhandler "stockhouse-backend/internal/interfaces/handlers/transactions"
	wallethandler "stockhouse-backend/internal/interfaces/handlers/wallet"
	"stockhouse-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the connections and collaborators the routes are built on. DB is required;
// a nil Rdb disables the token denylist and request counters, a nil Generator answers
// /chat with 503.
type Deps struct {
	DB        *gorm.DB
	Rdb       *redis.Client
	Oracle    oracle.Runner
	Generator advisor.Generator
	Dataset   string
}

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and route registration.
func CreateApp(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	if deps.Rdb != nil {
		app.Use(middleware.HealthMarker(deps.Rdb))
	}
	app.Use(middleware.RouteLogger())

	runner := deps.Oracle
	if runner == nil {
		runner = &oracle.ExecRunner{
			Command:   cfg.OracleCommand,
			Args:      cfg.OracleArgs,
			Timeout:   cfg.OracleTimeout,
			MaxOutput: cfg.OracleMaxOutput,
		}
	}

	hh := &healthhandler.Handlers{
		Checker: &healthsvc.Checker{
			Rdb:           deps.Rdb,
			DB:            &gormDBPinger{db: deps.DB},
			OracleCommand: cfg.OracleCommand,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	tokens := authsvc.NewTokens(cfg.JWTSecret, deps.Rdb)
	requireAuth := middleware.RequireAuth(tokens)

	ah := &authhandler.Handlers{Service: &authsvc.Service{
		DB:        deps.DB,
		Tokens:    tokens,
		SignupTTL: cfg.SignupTokenTTL,
		LoginTTL:  cfg.LoginTokenTTL,
	}}
	authGroup := app.Group("/auth")
	authGroup.Post("/signup", ah.Signup)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/user/:id", ah.UserType)
	authGroup.Get("/me", requireAuth, ah.Me)
	authGroup.Delete("/logout", requireAuth, ah.Logout)

	ph := &prophandler.Handlers{
		Catalog: &propsvc.Service{DB: deps.DB},
		Trading: &trading.Service{
			DB:             deps.DB,
			WalletEnforced: cfg.WalletEnforced,
			DefaultCap:     int64(cfg.DefaultPerUserCap),
		},
		Portfolios: &portfolio.Service{DB: deps.DB},
		Equity:     &equity.Service{DB: deps.DB},
		Oracle:     oracle.NewBridge(deps.DB, runner, cfg.OracleMaxConcurrent),
	}
	pg := app.Group("/properties")
	pg.Get("/", ph.List)
	pg.Get("/stats/active-investors", ph.ActiveInvestors)
	pg.Get("/validate-equity/:id", ph.ValidateEquity)
	pg.Get("/portfolio/:userId", requireAuth, middleware.AuthorizePermission(constants.ViewData), ph.Portfolio)
	pg.Post("/purchase", requireAuth, middleware.AuthorizePermission(constants.BuyShares), ph.Purchase)
	pg.Post("/transfer-shares", requireAuth, middleware.AuthorizePermission(constants.TransferShares), ph.Transfer)
	pg.Post("/sync/:id", requireAuth, middleware.AuthorizePermission(constants.SyncValuation), ph.Sync)
	pg.Post("/ingest", requireAuth, middleware.AuthorizePermission(constants.IngestListings), ph.Ingest)
	pg.Delete("/clear", requireAuth, middleware.AuthorizePermission(constants.ClearListings), ph.Clear)
	pg.Get("/:id", ph.Get)

	wh := &wallethandler.Handlers{Service: &walletsvc.Service{DB: deps.DB, MaxAmount: cfg.FaucetMaxAmount}}
	wg := app.Group("/wallet", requireAuth)
	wg.Get("/balance/:userId", middleware.AuthorizePermission(constants.ViewData), wh.Balance)
	wg.Post("/add-funds", middleware.AuthorizePermission(constants.AddFunds), wh.AddFunds)

	txh := &txhandler.Handlers{Service: &txsvc.Service{DB: deps.DB}}
	app.Get("/transactions", requireAuth, middleware.AuthorizePermission(constants.ViewData), txh.List)

	ch := &chathandler.Handlers{Advisor: &advisor.Service{Generator: deps.Generator, Dataset: deps.Dataset}}
	app.Post("/chat", ch.Chat)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
