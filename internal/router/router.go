package router

import (
	"time"

	"gmcore/internal/config"
	"gmcore/internal/handler"
	"gmcore/internal/middleware"
	"gmcore/internal/repository"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── Repositories ─────────────────────────────────────────────────────────
	locationRepo := repository.NewLocationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	keyRepo := repository.NewKeyRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Notification dispatch lives in the scheduler/worker graph (see
	// cmd/server); the HTTP surface only needs the synchronous services.
	ledgerSvc := service.NewLedgerService(inventoryRepo, locationRepo)
	alertSvc := service.NewAlertService(alertRepo, inventoryRepo, locationRepo, cfg.CriticalStockThreshold)
	activitySvc := service.NewActivityService(activityRepo, sessionRepo, usageRepo, cfg.DenyList())
	usageSvc := service.NewUsageService(usageRepo, activityRepo)
	keyringSvc := service.NewKeyringService(keyRepo, cfg.KeyRotationDays, cfg.KeyExpiryWarningDays)
	auditSvc := service.NewAuditService(auditRepo, inventoryRepo, ledgerSvc)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP
	r.Use(middleware.ActivityCapture(activitySvc))

	// ── Handlers ─────────────────────────────────────────────────────────────
	ledgerH := handler.NewLedgerHandler(ledgerSvc)
	alertH := handler.NewAlertHandler(alertSvc)
	activityH := handler.NewActivityHandler(activitySvc, usageSvc)
	auditH := handler.NewAuditHandler(auditSvc)
	keyH := handler.NewKeyHandler(keyringSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(keyringSvc)
	v1 := r.Group("/v1", jwtMW)
	{
		items := v1.Group("/items")
		{
			items.GET("", middleware.RequireRole("staff", "admin"), ledgerH.ListItems)
			items.GET("/:id", middleware.RequireRole("staff", "admin"), ledgerH.GetItem)
			items.POST("", middleware.RequireRole("admin"), ledgerH.CreateItem)
		}

		stock := v1.Group("/stock", middleware.RequireRole("staff", "admin"))
		{
			stock.POST("/reserve", ledgerH.Reserve)
			stock.DELETE("/reserve/:handle", ledgerH.Release)
			stock.POST("/consume", ledgerH.Consume)
			stock.POST("/receive", ledgerH.Receive)
			stock.POST("/transfer", ledgerH.Transfer)
			stock.POST("/adjust", ledgerH.Adjust)
			stock.GET("/movements", ledgerH.ListMovements)
		}

		alerts := v1.Group("/alerts", middleware.RequireRole("staff", "admin"))
		{
			alerts.GET("", alertH.ListActive)
			alerts.POST("/:id/acknowledge", alertH.Acknowledge)
			alerts.POST("/:id/resolve", alertH.Resolve)
			alerts.POST("/sweep", middleware.RequireRole("admin"), alertH.Sweep)
		}

		audits := v1.Group("/audits", middleware.RequireRole("staff", "admin"))
		{
			audits.POST("", auditH.Plan)
			audits.GET("/:id", auditH.Get)
			audits.POST("/:id/start", auditH.Start)
			audits.POST("/:id/count", auditH.Count)
			audits.POST("/:id/accept", auditH.Accept)
			audits.POST("/:id/cancel", auditH.Cancel)
			audits.GET("/:id/variances", auditH.Variances)
		}

		activity := v1.Group("/activity", middleware.RequireRole("admin"))
		{
			activity.GET("/recent", activityH.ListRecent)
			activity.GET("/users/:user_id", activityH.ListForUser)
			activity.GET("/usage", activityH.Usage)
		}

		sessions := v1.Group("/sessions", middleware.RequireRole("admin"))
		{
			sessions.POST("", activityH.OpenSession)
			sessions.DELETE("", activityH.CloseSession)
		}

		keys := v1.Group("/keys", middleware.RequireRole("admin"))
		{
			keys.GET("/status", keyH.Status)
			keys.POST("/:kind/rotate", keyH.Rotate)
		}
	}

	return r
}
