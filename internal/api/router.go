package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/handlers"
	"github.com/nebari-dev/refstore/internal/api/middleware"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/blueprint"
	"github.com/nebari-dev/refstore/internal/config"
	"github.com/nebari-dev/refstore/internal/metrics"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/ratelimit"
	"github.com/nebari-dev/refstore/internal/rbac"
	"github.com/nebari-dev/refstore/internal/resolve"
	"github.com/nebari-dev/refstore/internal/service"
	"github.com/nebari-dev/refstore/internal/tokenizer"
	"github.com/nebari-dev/refstore/internal/versioning"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces the router wires handlers to.
type Deps struct {
	DB       *gorm.DB
	Audit    resolve.AuditSink
	Issuer   *auth.TokenIssuer
	Enforcer *rbac.Enforcer
	Limiter  ratelimit.Limiter // nil disables rate limiting
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(middleware.Metrics(d.Metrics))
	router.Use(corsMiddleware())

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "route not found")
	})

	// Stores and services
	templateVersions := versioning.New[models.TemplateVersion](d.DB, versioning.TemplateKind)
	blockVersions := versioning.New[models.BlockVersion](d.DB, versioning.BlockKind)
	versioner := blueprint.NewVersioner(d.DB)

	appSvc := service.NewAppService(d.DB)
	templateSvc := service.NewTemplateService(d.DB, appSvc, templateVersions)
	blueprintSvc := service.NewBlueprintService(d.DB, appSvc, versioner, blockVersions)

	resolver := resolve.New(resolve.Deps{
		DB:        d.DB,
		Templates: templateVersions,
		Versioner: versioner,
		Tokenizer: tokenizer.New(),
		Audit:     d.Audit,
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	})

	appHandler := handlers.NewAppHandler(appSvc)
	templateHandler := handlers.NewTemplateHandler(templateSvc)
	blueprintHandler := handlers.NewBlueprintHandler(blueprintSvc)
	resolveHandler := handlers.NewResolveHandler(resolver)
	tokenHandler := handlers.NewTokenHandler(d.DB, d.Issuer, appSvc)
	auditHandler := handlers.NewAuditHandler(d.DB)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck(d.DB))
		public.GET("/version", handlers.GetVersion)
	}

	// Protected routes (require a bearer credential)
	protected := router.Group("/api/v1")
	protected.Use(auth.Middleware(d.Issuer))
	{
		can := func(obj, act string) gin.HandlerFunc { return middleware.Require(d.Enforcer, obj, act) }

		resolveChain := []gin.HandlerFunc{can(rbac.ObjResolve, rbac.ActExecute)}
		if d.Limiter != nil {
			resolveChain = append(resolveChain, middleware.RateLimit(d.Limiter, cfg.RateLimit.LimitFor, d.Metrics))
		}
		resolveChain = append(resolveChain, resolveHandler.Resolve)
		protected.POST("/resolve", resolveChain...)

		// Apps
		protected.GET("/apps", can(rbac.ObjApp, rbac.ActRead), appHandler.ListApps)
		protected.POST("/apps", can(rbac.ObjApp, rbac.ActWrite), appHandler.CreateApp)
		protected.GET("/apps/:app", can(rbac.ObjApp, rbac.ActRead), appHandler.GetApp)
		protected.DELETE("/apps/:app", can(rbac.ObjApp, rbac.ActWrite), appHandler.DeleteApp)

		app := protected.Group("/apps/:app")

		// Templates
		app.GET("/templates", can(rbac.ObjContent, rbac.ActRead), templateHandler.ListTemplates)
		app.POST("/templates", can(rbac.ObjContent, rbac.ActWrite), templateHandler.CreateTemplate)
		app.GET("/templates/:slug", can(rbac.ObjContent, rbac.ActRead), templateHandler.GetTemplate)
		app.PATCH("/templates/:slug", can(rbac.ObjContent, rbac.ActWrite), templateHandler.UpdateTemplate)
		app.DELETE("/templates/:slug", can(rbac.ObjContent, rbac.ActWrite), templateHandler.DeleteTemplate)

		// Template versions
		app.GET("/templates/:slug/versions", can(rbac.ObjVersion, rbac.ActRead), templateHandler.ListVersions)
		app.POST("/templates/:slug/versions", can(rbac.ObjVersion, rbac.ActWrite), templateHandler.CreateVersion)
		app.GET("/templates/:slug/versions/:version", can(rbac.ObjVersion, rbac.ActRead), templateHandler.GetVersion)
		app.POST("/templates/:slug/versions/:version/promote", can(rbac.ObjVersion, rbac.ActPromote), templateHandler.PromoteVersion)
		app.POST("/templates/:slug/versions/:version/restore", can(rbac.ObjVersion, rbac.ActWrite), templateHandler.RestoreVersion)

		// Blueprints
		app.GET("/blueprints", can(rbac.ObjContent, rbac.ActRead), blueprintHandler.ListBlueprints)
		app.POST("/blueprints", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.CreateBlueprint)
		app.GET("/blueprints/:slug", can(rbac.ObjContent, rbac.ActRead), blueprintHandler.GetBlueprint)
		app.PATCH("/blueprints/:slug", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.UpdateBlueprint)
		app.DELETE("/blueprints/:slug", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.DeleteBlueprint)

		// Blocks
		app.POST("/blueprints/:slug/blocks", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.CreateBlock)
		app.PATCH("/blueprints/:slug/blocks/:block", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.UpdateBlock)
		app.DELETE("/blueprints/:slug/blocks/:block", can(rbac.ObjContent, rbac.ActWrite), blueprintHandler.DeleteBlock)
		app.GET("/blueprints/:slug/blocks/:block/versions", can(rbac.ObjVersion, rbac.ActRead), blueprintHandler.ListBlockVersions)
		app.POST("/blueprints/:slug/blocks/:block/versions", can(rbac.ObjVersion, rbac.ActWrite), blueprintHandler.CreateBlockVersion)
		app.POST("/blueprints/:slug/blocks/:block/versions/:version/promote", can(rbac.ObjVersion, rbac.ActPromote), blueprintHandler.PromoteBlockVersion)
		app.POST("/blueprints/:slug/blocks/:block/versions/:version/restore", can(rbac.ObjVersion, rbac.ActWrite), blueprintHandler.RestoreBlockVersion)

		// Blueprint versions
		app.GET("/blueprints/:slug/versions", can(rbac.ObjVersion, rbac.ActRead), blueprintHandler.ListVersions)
		app.POST("/blueprints/:slug/versions", can(rbac.ObjVersion, rbac.ActWrite), blueprintHandler.CreateVersion)
		app.GET("/blueprints/:slug/versions/:version", can(rbac.ObjVersion, rbac.ActRead), blueprintHandler.GetVersion)
		app.POST("/blueprints/:slug/versions/:version/promote", can(rbac.ObjVersion, rbac.ActPromote), blueprintHandler.PromoteVersion)
		app.POST("/blueprints/:slug/versions/:version/restore", can(rbac.ObjVersion, rbac.ActWrite), blueprintHandler.RestoreVersion)
		app.GET("/blueprints/:slug/diff", can(rbac.ObjVersion, rbac.ActRead), blueprintHandler.Diff)

		// Admin
		protected.POST("/tokens", can(rbac.ObjToken, rbac.ActIssue), tokenHandler.IssueToken)
		protected.GET("/audit-logs", can(rbac.ObjAudit, rbac.ActRead), auditHandler.ListAuditLogs)
	}

	// Prometheus metrics
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, If-None-Match, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
