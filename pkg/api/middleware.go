package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/structured-pricer/pkg/metrics"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
	"github.com/rzzdr/structured-pricer/pkg/utils/ratelimit"
)

// LoggingMiddleware logs request information
func LoggingMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.middleware")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Infof("%s %s [%d] %v", method, path, c.Writer.Status(), time.Since(start))
	}
}

// MetricsMiddleware captures API metrics, labelled by route template
func MetricsMiddleware(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		recorder.RecordAPIRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	origins := strings.Join(orDefault(cfg.AllowedOrigins, []string{"*"}), ", ")
	methods := strings.Join(orDefault(cfg.AllowedMethods, []string{"GET", "POST", "OPTIONS"}), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, []string{"Content-Type", "Authorization"}), ", ")

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methods)
		c.Writer.Header().Set("Access-Control-Allow-Headers", headers)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// ErrorMiddleware catches panics and returns an error response
func ErrorMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.error")

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("API panic recovered: %v", err)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": fmt.Sprintf("Internal server error: %v", err),
					"type":  "internal",
				})
			}
		}()

		c.Next()
	}
}

// RateLimitMiddleware limits the number of requests per client IP
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	log := logger.GetLogger("api.ratelimit")
	var clients sync.Map

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		limiter, ok := clients.Load(clientIP)
		if !ok {
			limiter, _ = clients.LoadOrStore(clientIP, ratelimit.NewTokenBucket(rps, burst))
		}

		if !limiter.(*ratelimit.TokenBucket).Allow() {
			log.Warnf("Rate limit exceeded for client: %s", clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"type":  "rate_limited",
			})
			return
		}

		c.Next()
	}
}
