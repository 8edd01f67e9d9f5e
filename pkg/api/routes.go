package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rzzdr/structured-pricer/pkg/metrics"
)

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(ErrorMiddleware())
	r.Use(LoggingMiddleware())
	if s.recorder != nil {
		r.Use(MetricsMiddleware(s.recorder))
	}
	r.Use(CORSMiddleware(s.config.CORS))

	r.GET("/health", s.handlers.HealthCheckHandler)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	v1 := r.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(RateLimitMiddleware(s.config.RateLimit, s.config.RateBurst))
	}

	pricing := v1.Group("/pricing")
	{
		pricing.GET("", s.handlers.PricingInfoHandler)
		pricing.POST("/reverse-convertible", s.handlers.ReverseConvertibleHandler)
		pricing.POST("/autocall", s.handlers.AutocallHandler)
		pricing.POST("/capital-protected", s.handlers.CapitalProtectedHandler)
		pricing.POST("/warrant", s.handlers.WarrantHandler)
	}

	builder := v1.Group("/product-builder")
	{
		builder.POST("/build", s.handlers.BuildProductsHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})
}
