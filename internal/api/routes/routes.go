package routes

import (
	"time"

	"social-service/internal/api/handlers"
	"social-service/internal/api/middleware"
	"social-service/internal/config"
	"social-service/internal/websocket"

	_ "social-service/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Dependencies struct {
	Hub          *websocket.Hub
	Auth         middleware.Authenticator
	RateLimiter  middleware.RateLimiter
	HealthChecks map[string]handlers.HealthCheck
	Gateway      config.GatewayConfig
}

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	presenceHandler *handlers.PresenceHandler
	healthHandler   *handlers.HealthHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
	handshakeRate   int
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.Gateway.AllowedOrigins, deps.Gateway.AllowLocalOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(deps.Hub, deps.Gateway.AllowedOrigins, deps.Gateway.AllowLocalOrigins, deps.Gateway.SendBuffer),
		presenceHandler: handlers.NewPresenceHandler(deps.Hub),
		healthHandler:   handlers.NewHealthHandler(deps.HealthChecks),
		rateLimitMW:     middleware.NewRateLimitMiddleware(deps.RateLimiter),
		authMW:          middleware.NewAuthMiddleware(deps.Auth, deps.Gateway.HandshakeTimeout),
		handshakeRate:   deps.Gateway.HandshakeRate,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthHandler.Health)
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Authentication happens before the upgrade so a refused client never
	// touches hub state.
	api.GET("/ws",
		r.rateLimitMW.RateLimitIP(r.handshakeRate, time.Minute),
		r.authMW.RequireAuth(),
		r.wsHandler.HandleWebSocket,
	)

	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		auth.GET("/presence/online", r.presenceHandler.GetOnlineUsers)
		auth.GET("/presence/stats", r.presenceHandler.GetStats)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
