package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ayofalola240/Okra-assessment/internal/cache"
	"github.com/ayofalola240/Okra-assessment/internal/http/handlers"
	"github.com/ayofalola240/Okra-assessment/internal/http/middlewares"
	"github.com/ayofalola240/Okra-assessment/internal/observability"
)

type RouterDeps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Users   handlers.UsersService
	Reports handlers.CityReporter
	// Checks feed /readyz, keyed by dependency name.
	Checks map[string]handlers.Pinger

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// nil disables rate limiting
	Limiter *middlewares.RateLimiter

	ListCache      *cache.Cache[[]byte]
	AllowedOrigins []string
	MaxBodyBytes   int64
	StoreTimeout   time.Duration
	HSTS           bool
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env != "dev" && deps.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())

	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}

	r.Use(middlewares.RequestLogger(log))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.SecurityHeaders(deps.HSTS))
	r.Use(middlewares.CORSMiddleware(deps.AllowedOrigins))

	// ops
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	usersHandler := handlers.NewUsersHandlerWithCache(deps.Users, deps.ListCache, deps.Prom, deps.StoreTimeout)
	reportsHandler := handlers.NewReportsHandler(deps.Reports, 2*deps.StoreTimeout)

	api := r.Group("/api/v1")

	if deps.Limiter != nil {
		api.Use(deps.Limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	}

	api.Use(middlewares.MaxBodyBytes(deps.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	users := api.Group("/users")
	{
		users.POST("", usersHandler.CreateUser)
		users.GET("", usersHandler.ListUsers)
		users.GET("/city-stats", reportsHandler.CityStats)
		users.GET("/:id", usersHandler.GetUser)
		users.PUT("/:id", usersHandler.UpdateUser)
		users.PATCH("/:id", usersHandler.UpdateUser)
		users.DELETE("/:id", usersHandler.DeleteUser)

		// route names kept for existing clients
		users.POST("/create-user", usersHandler.CreateUser)
		users.GET("/get-all-users", usersHandler.ListUsers)
		users.GET("/get-user/:id", usersHandler.GetUser)
		users.PUT("/update-user/:id", usersHandler.UpdateUser)
		users.DELETE("/delete-user/:id", usersHandler.DeleteUser)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "route_not_found", "Route not found", nil)
	})

	return r
}
