// Package router assembles the gin engine serving the CRM admin API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/crm-admin-api/internal/handler"
	"github.com/noah-isme/crm-admin-api/internal/middleware"
	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/crm-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/crm-admin-api/pkg/middleware/requestid"
)

// Deps carries everything the router mounts.
type Deps struct {
	APIPrefix      string
	AllowedOrigins []string
	// AuthRequired puts user mutations behind an Administrator token.
	AuthRequired bool
	EnableDocs   bool
	Logger       *zap.Logger

	Tokens   middleware.TokenValidator
	Observer middleware.RequestObserver

	Users   *handler.UserHandler
	Stats   *handler.StatsHandler
	Auth    *handler.AuthHandler
	Metrics *handler.MetricsHandler
}

// New builds the engine with global middleware and every route registered.
func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(d.Observer, "/metrics", "/health", "/ready"))

	if d.Metrics != nil {
		r.GET("/health", d.Metrics.Health)
		r.GET("/ready", d.Metrics.Ready)
		r.GET("/metrics", d.Metrics.Prometheus)
		r.GET("/metrics/summary", d.Metrics.Snapshot)
	}
	if d.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.APIPrefix)
	if d.Tokens != nil {
		api.Use(middleware.OptionalJWT(d.Tokens))
	}

	if d.Users != nil {
		users := api.Group("/users")
		users.GET("", d.Users.List)
		users.GET("/view", d.Users.View)
		users.GET("/export", d.Users.Export)
		users.GET("/:id", d.Users.Get)

		writes := users.Group("")
		if d.AuthRequired && d.Tokens != nil {
			writes.Use(middleware.JWT(d.Tokens), middleware.RequireRoles(models.RoleAdministrator))
		}
		writes.POST("", d.Users.Create)
		writes.PUT("/:id", d.Users.Update)
		writes.PATCH("/:id", d.Users.Update)
		writes.DELETE("/:id", d.Users.Delete)
	}

	if d.Stats != nil {
		stats := api.Group("/stats")
		stats.GET("", d.Stats.List)
		stats.GET("/user-distribution", d.Stats.UserDistribution)
	}

	if d.Auth != nil {
		api.POST("/auth/login", d.Auth.Login)
	}

	return r
}
