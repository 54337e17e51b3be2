package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/config"
	"github.com/congo-pay/walletsync/internal/ingest"
	"github.com/congo-pay/walletsync/internal/ledger"
	"github.com/congo-pay/walletsync/internal/middleware"
	"github.com/congo-pay/walletsync/internal/notification"
	"github.com/congo-pay/walletsync/internal/syncer"
	"github.com/congo-pay/walletsync/internal/wallet"
	"github.com/congo-pay/walletsync/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Deposits *kafka.Writer
	Logger   *slog.Logger
	// Reader overrides the explorer client; tests inject fakes here.
	Reader chain.Reader
	// Ledger overrides the ledger backend; tests inject shared instances here.
	Ledger ledger.Ledger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDevelopment() {
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
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app)

	// Services and handlers
	ledgerBackend := d.Ledger
	if ledgerBackend == nil {
		if d.DB != nil {
			ledgerBackend = ledger.NewPostgresLedger(d.DB)
		} else {
			ledgerBackend = ledger.NewInMemory()
		}
	}

	var walletRepo wallet.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
	}
	resolver := wallet.NewCachedResolver(walletRepo, d.Cfg.WalletCacheTTL)
	walletSvc := wallet.NewService(walletRepo, resolver, ledgerBackend)

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Deposits != nil {
		notifier = notification.NewKafkaNotifier(d.Deposits)
	}
	recorder := ingest.NewRecorder(ledgerBackend, notifier, d.Logger)

	reader := d.Reader
	if reader == nil {
		reader = chain.NewExplorerClient(d.Cfg.Explorer, d.Logger)
	}
	syncSvc := syncer.NewService(reader, resolver, ledgerBackend, recorder, syncer.Options{
		Networks: configuredNetworks(d.Cfg.Explorer, d.Logger),
		PageSize: d.Cfg.Explorer.PageSize,
		MaxPages: d.Cfg.Explorer.MaxPages,
		Timeout:  d.Cfg.Explorer.Timeout,
	}, d.Logger)
	webhookSvc := webhook.NewService(resolver, recorder, d.Logger)

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

	RegisterSyncRoutes(api, syncer.NewHandler(syncSvc),
		middleware.SyncRateLimit(d.Cache, d.Cfg.SyncPerMinute),
		middleware.SyncLock(d.Cache, d.Cfg.SyncLockTTL, d.Logger),
	)
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterWebhookRoutes(app, webhook.NewHandler(webhookSvc), middleware.WebhookAuth(d.Cfg.WebhookSecret))

	return nil
}

func configuredNetworks(cfg config.ExplorerConfig, log *slog.Logger) []chain.Network {
	names := cfg.ConfiguredNetworks()
	sort.Strings(names)
	out := make([]chain.Network, 0, len(names))
	for _, name := range names {
		n, err := chain.ParseNetwork(name)
		if err != nil {
			log.Warn("skipping unknown explorer network", slog.String("network", name))
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		log.Warn("no explorer API keys configured; poll sync will report provider not configured")
	}
	return out
}
