// Package api wires together all HTTP routes for the quality ledger backend.
//
// Route grouping philosophy:
//   - All domain routes live under /api/v1 behind the general rate limiter and,
//     when security.auth.enabled is set, bearer-token authentication.
//   - Mutation routes additionally carry the stricter mutation rate limiter:
//     every anchored write holds a ledger round trip open, so they are costlier
//     than reads and easier to abuse.
//   - /health and /version sit outside the group so probes are never rate
//     limited or authenticated. Prometheus metrics are not served here at all;
//     they live on the telemetry side port.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/quality-ledger/quality-ledger/internal/api/audits"
	"github.com/quality-ledger/quality-ledger/internal/api/ledgerapi"
	"github.com/quality-ledger/quality-ledger/internal/api/registry"
	"github.com/quality-ledger/quality-ledger/internal/api/team"
	"github.com/quality-ledger/quality-ledger/internal/config"
	"github.com/quality-ledger/quality-ledger/internal/db/repositories"
	"github.com/quality-ledger/quality-ledger/internal/jobs"
	"github.com/quality-ledger/quality-ledger/internal/ledger"
	"github.com/quality-ledger/quality-ledger/internal/middleware"
	"github.com/quality-ledger/quality-ledger/internal/workflow"
)

// Version is the reported API version, overridable at build time with
// -ldflags "-X .../internal/api.Version=...".
var Version = "0.1.0"

// BackgroundServices holds references to background workers and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() after the HTTP server has drained.
type BackgroundServices struct {
	scheduleRunner *jobs.ScheduleRunner
	rateLimiters   []*middleware.RateLimiter
	shipper        ledger.Shipper
	redisClient    *redis.Client
	logger         *slog.Logger
}

// Shutdown stops all background goroutines and closes the ledger destinations.
func (bg *BackgroundServices) Shutdown() {
	bg.logger.Info("stopping background services")
	if bg.scheduleRunner != nil {
		bg.scheduleRunner.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			bg.logger.Error("failed to close ledger shipper", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			bg.logger.Error("failed to close redis client", "error", err)
		}
	}
	bg.logger.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, database *sqlx.DB, logger *slog.Logger) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(database)
	standardRepo := repositories.NewStandardRepository(database)
	checkRepo := repositories.NewCheckRepository(database)
	auditRepo := repositories.NewAuditRepository(database)
	alertRepo := repositories.NewAlertRepository(database)
	memberRepo := repositories.NewMemberRepository(database)
	scheduleRepo := repositories.NewScheduleRepository(database)
	ledgerRepo := repositories.NewLedgerRepository(database)
	statsRepo := repositories.NewStatsRepository(database)

	// Ledger anchoring stack
	shipper, err := ledger.NewMultiShipper(&cfg.Ledger)
	if err != nil {
		return nil, nil, err
	}
	anchorer := ledger.NewAnchorer(ledgerRepo, shipper, &cfg.Ledger, logger)
	verifier := ledger.NewVerifier(ledgerRepo, cfg.Ledger.DigestAlgorithm)

	// Workflow engine
	engine := workflow.NewEngine(database, orgRepo, standardRepo, checkRepo,
		auditRepo, alertRepo, anchorer, &cfg.Workflow, logger)

	// Handlers
	registryHandler := registry.NewHandler(engine, orgRepo, standardRepo, checkRepo, logger)
	auditHandler := audits.NewHandler(engine, auditRepo, statsRepo, logger)
	teamHandler := team.NewHandler(memberRepo, scheduleRepo, alertRepo, orgRepo, checkRepo, logger)
	ledgerHandler := ledgerapi.NewHandler(ledgerRepo, verifier, logger)

	bg := &BackgroundServices{shipper: shipper, logger: logger}

	// Schedule runner
	if cfg.Scheduler.Enabled {
		bg.scheduleRunner = jobs.NewScheduleRunner(scheduleRepo, engine, &cfg.Scheduler, logger)
		bg.scheduleRunner.Start(context.Background())
	}

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Probe endpoints, outside rate limiting and auth
	router.GET("/health", healthCheckHandler(database))
	router.GET("/status", statusHandler(database, ledgerRepo, shipper))
	router.GET("/version", versionHandler())

	// Rate limiters. With Redis configured the limits are enforced across all
	// replicas; otherwise each process keeps its own in-memory buckets.
	generalLimit, mutationLimit := gin.HandlerFunc(nil), gin.HandlerFunc(nil)
	if cfg.Security.RateLimiting.Enabled {
		generalCfg := middleware.DefaultRateLimitConfig()
		if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
			generalCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
		}
		if cfg.Security.RateLimiting.Burst > 0 {
			generalCfg.BurstSize = cfg.Security.RateLimiting.Burst
		}
		mutationCfg := middleware.MutationRateLimitConfig()

		if cfg.Redis.Addr != "" {
			bg.redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			generalLimit = middleware.RedisRateLimitMiddleware(middleware.NewRedisRateLimiter(bg.redisClient, generalCfg))
			mutationLimit = middleware.RedisRateLimitMiddleware(middleware.NewRedisRateLimiter(bg.redisClient, mutationCfg))
			logger.Info("distributed rate limiting enabled", "redis_addr", cfg.Redis.Addr)
		} else {
			generalLimiter := middleware.NewRateLimiter(generalCfg)
			mutationLimiter := middleware.NewRateLimiter(mutationCfg)
			bg.rateLimiters = append(bg.rateLimiters, generalLimiter, mutationLimiter)
			generalLimit = middleware.RateLimitMiddleware(generalLimiter)
			mutationLimit = middleware.RateLimitMiddleware(mutationLimiter)
		}
	}

	apiV1 := router.Group("/api/v1")
	if generalLimit != nil {
		apiV1.Use(generalLimit)
	}
	if cfg.Security.Auth.Enabled {
		apiV1.Use(middleware.JWTAuthMiddleware())
	}
	mutation := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if mutationLimit == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{mutationLimit, h}
	}
	{
		// Organizations
		orgsGroup := apiV1.Group("/organizations")
		{
			orgsGroup.POST("", mutation(registryHandler.CreateOrganization)...)
			orgsGroup.GET("", registryHandler.ListOrganizations)
			orgsGroup.GET("/:id", registryHandler.GetOrganization)
			orgsGroup.POST("/:id/activate", mutation(registryHandler.ActivateOrganization)...)
			orgsGroup.POST("/:id/deactivate", mutation(registryHandler.DeactivateOrganization)...)

			// Team roster
			orgsGroup.GET("/:id/members", teamHandler.ListMembers)
			orgsGroup.POST("/:id/members", mutation(teamHandler.AddMember)...)
		}

		// Quality standards
		standardsGroup := apiV1.Group("/standards")
		{
			standardsGroup.POST("", mutation(registryHandler.CreateStandard)...)
			standardsGroup.GET("", registryHandler.ListStandards)
			standardsGroup.GET("/:id", registryHandler.GetStandard)
		}

		// Quality checks
		checksGroup := apiV1.Group("/checks")
		{
			checksGroup.POST("", mutation(registryHandler.CreateCheck)...)
			checksGroup.GET("", registryHandler.ListChecks)
			checksGroup.GET("/:id", registryHandler.GetCheck)
		}

		// Audit lifecycle
		auditsGroup := apiV1.Group("/audits")
		{
			auditsGroup.POST("", mutation(auditHandler.Initiate)...)
			auditsGroup.GET("", auditHandler.List)
			auditsGroup.GET("/:id", auditHandler.Get)
			auditsGroup.GET("/:id/approvals", auditHandler.Approvals)
			auditsGroup.POST("/:id/approve", mutation(auditHandler.Approve)...)
			auditsGroup.POST("/:id/complete", mutation(auditHandler.Complete)...)
		}

		// Members (lookups outside the organization scope)
		membersGroup := apiV1.Group("/members")
		{
			membersGroup.GET("/:id", teamHandler.GetMember)
			membersGroup.POST("/:id/activate", mutation(teamHandler.ActivateMember)...)
			membersGroup.POST("/:id/deactivate", mutation(teamHandler.DeactivateMember)...)
		}

		// Scheduled audits
		schedulesGroup := apiV1.Group("/schedules")
		{
			schedulesGroup.POST("", mutation(teamHandler.CreateSchedule)...)
			schedulesGroup.GET("", teamHandler.ListSchedules)
			schedulesGroup.GET("/:id", teamHandler.GetSchedule)
			schedulesGroup.POST("/:id/activate", mutation(teamHandler.ActivateSchedule)...)
			schedulesGroup.POST("/:id/deactivate", mutation(teamHandler.DeactivateSchedule)...)
		}

		// Alerts
		alertsGroup := apiV1.Group("/alerts")
		{
			alertsGroup.GET("", teamHandler.ListAlerts)
			alertsGroup.GET("/unread", teamHandler.UnreadAlertCount)
			alertsGroup.POST("/:id/read", teamHandler.MarkAlertRead)
		}

		// Compliance projections
		statsGroup := apiV1.Group("/stats")
		{
			statsGroup.GET("/compliance", auditHandler.Compliance)
			statsGroup.GET("/monthly", auditHandler.Monthly)
			statsGroup.GET("/dashboard", auditHandler.Dashboard)
		}

		// Tamper-evidence ledger, read-only
		ledgerGroup := apiV1.Group("/ledger")
		{
			ledgerGroup.GET("/records", ledgerHandler.Records)
			ledgerGroup.GET("/verify", ledgerHandler.Verify)
		}
	}

	return router, bg, nil
}

// healthCheckHandler returns the health status of the service.
func healthCheckHandler(database *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// statusHandler extends the health probe with a ledger connectivity summary:
// which external destinations are configured and how long the chain is.
func statusHandler(database *sqlx.DB, ledgerRepo *repositories.LedgerRepository, shipper *ledger.MultiShipper) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ledgerInfo := gin.H{"destinations": shipper.Destinations()}

		if err := database.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"version":  Version,
				"database": "unreachable",
				"ledger":   ledgerInfo,
			})
			return
		}

		if count, err := ledgerRepo.Count(ctx); err == nil {
			ledgerInfo["records"] = count
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"database": "ok",
			"ledger":   ledgerInfo,
		})
	}
}

// versionHandler returns the API version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware logs each request as a structured slog record. Output format
// (JSON or text) follows the global handler configured in telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		requestID := c.GetString(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", requestID),
		)
	}
}
