package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/linkpulse/linkpulse-backend/internal/handlers"
	"github.com/linkpulse/linkpulse-backend/internal/middleware"
)

type RouterConfig struct {
	ClickHandler       *handlers.ClickHandler
	SaleHandler        *handlers.SaleHandler
	AttributionHandler *handlers.AttributionHandler
	InsightHandler     *handlers.InsightHandler
	LinkHandler        *handlers.LinkHandler
	RequestLog         *middleware.RequestLogMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("linkpulse"))
	if cfg.RequestLog != nil {
		router.Use(cfg.RequestLog.Handler())
	}

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Public redirect path, hit by visitors.
	router.GET("/r/:slug", cfg.ClickHandler.Redirect)

	api := router.Group("/api")
	{
		// Ingestion
		api.POST("/clicks", cfg.ClickHandler.Ingest)
		api.POST("/sales", cfg.SaleHandler.Correlate)

		// Attributions
		api.POST("/attributions/:id/feedback", cfg.AttributionHandler.Feedback)
		api.PATCH("/attributions/:id", cfg.AttributionHandler.Adjust)
		api.GET("/users/:userId/attributions", cfg.AttributionHandler.List)
		api.GET("/model/status", cfg.AttributionHandler.ModelStatus)

		// Links
		api.POST("/links", cfg.LinkHandler.Create)
		api.GET("/users/:userId/links", cfg.LinkHandler.List)

		// Reports
		api.GET("/reports/creator", cfg.InsightHandler.CreatorReport)
		api.GET("/reports/aggregate", cfg.InsightHandler.AggregateReport)
	}

	return router
}
