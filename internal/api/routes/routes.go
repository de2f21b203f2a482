package routes

import (
	"io"
	"log/slog"

	"poll-service/internal/api/handlers"
	"poll-service/internal/api/middleware"
	"poll-service/internal/config"
	"poll-service/internal/services"
	"poll-service/internal/websocket"

	_ "poll-service/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	pollHandler *handlers.PollHandler
	wsHandler   *handlers.WSHandler
	rateLimitMW *middleware.RateLimitMiddleware
}

func NewRouter(
	cfg *config.Config,
	pollService *services.PollService,
	hub *websocket.Hub,
	limiter middleware.RateLimiter,
	accessLog io.Writer,
) *Router {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		slog.Error("Invalid TRUSTED_PROXIES, trusting none", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}
	origins := middleware.NewOriginMatcher(cfg.Server.AllowedOrigins())

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(origins))
	engine.Use(middleware.LogApi(accessLog))
	engine.Use(middleware.Identity())

	return &Router{
		engine:      engine,
		cfg:         cfg,
		pollHandler: handlers.NewPollHandler(pollService, cfg.Server.ClientBaseURL),
		wsHandler:   handlers.NewWSHandler(hub, origins),
		rateLimitMW: middleware.NewRateLimitMiddleware(limiter),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api")
	api.Use(r.rateLimitMW.RateLimitIP(r.cfg.RateLimit.Requests, r.cfg.RateLimit.Window))

	r.pollHandler.RegisterRoutes(api)
	r.wsHandler.RegisterRoutes(api)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
