package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"treko/internal/adapter/gin/handler"
	"treko/internal/adapter/gin/middleware"
	"treko/pkg/auth"
	"treko/pkg/logger"
)

// Public API paths reachable without a token.
const (
	LoginPath   = "/api/auth/login"
	RefreshPath = "/api/auth/refresh"
)

// Handlers groups the HTTP handlers mounted by SetupRouter.
type Handlers struct {
	Account  *handler.AccountHandler
	Project  *handler.ProjectHandler
	Tracking *handler.TrackingHandler
	Health   *handler.HealthHandler
}

// Options configures the middleware chain.
type Options struct {
	Tokens      *auth.TokenManager
	RateLimiter *middleware.RateLimiter
	MaxInFlight int
	StaticRoot  string
	ReleaseMode bool
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(h Handlers, opts Options, log *zap.Logger) *gin.Engine {
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(logger.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(logger.AccessLog(log))
	router.Use(middleware.Metrics())

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.StaticRoot != "" {
		router.Static("/static", opts.StaticRoot)
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/static/openapi.json"),
		)))
	}

	api := router.Group("/api")
	api.Use(middleware.Concurrency(opts.MaxInFlight))
	api.Use(opts.RateLimiter.Handler())
	api.Use(middleware.Authenticate(opts.Tokens, log, LoginPath, RefreshPath))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.Account.Login)
			authGroup.POST("/refresh", h.Account.Refresh)
			authGroup.POST("/signup", h.Account.Signup)
			authGroup.POST("/change-password", h.Account.ChangePassword)
		}

		orgs := api.Group("/organizations", middleware.RequireSuperuser())
		{
			orgs.GET("", h.Account.ListOrganizations)
			orgs.POST("", h.Account.CreateOrganization)
		}

		users := api.Group("/users")
		{
			users.GET("", h.Account.ListUsers)
			users.GET("/:id", h.Account.GetUser)
		}

		projects := api.Group("/projects")
		{
			projects.POST("", h.Project.CreateProject)
			projects.GET("", h.Project.ListProjects)
			projects.GET("/:id", h.Project.GetProject)
			projects.PATCH("/:id", h.Project.UpdateProject)
			projects.DELETE("/:id", h.Project.DeleteProject)
		}

		tasks := api.Group("/tasks")
		{
			tasks.POST("", h.Project.CreateTask)
			tasks.GET("", h.Project.ListTasks)
			tasks.GET("/:id", h.Project.GetTask)
			tasks.PATCH("/:id", h.Project.UpdateTask)
			tasks.DELETE("/:id", h.Project.DeleteTask)
			tasks.GET("/:id/time-spent", h.Project.TimeSpent)
		}

		api.POST("/payload", h.Tracking.Ingest)

		sessions := api.Group("/tracking-sessions/:id")
		{
			sessions.GET("/today", h.Tracking.Today)
			sessions.GET("/history", h.Tracking.History)
			sessions.GET("/apps", h.Tracking.Apps)
			sessions.GET("/screenshots", h.Tracking.Screenshots)
			sessions.GET("/headshots", h.Tracking.Headshots)
			sessions.GET("/tasks", h.Tracking.Tasks)
		}
	}

	return router
}
