package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "catalog-service"

// HealthCheck handles health check requests
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Pinger is a dependency the readiness probe checks.
type Pinger func(ctx context.Context) error

// ReadinessCheck reports ready once the database answers. Redis is optional
// and only reported.
func ReadinessCheck(db Pinger, redis Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		if db != nil {
			if err := db(ctx); err != nil {
				checks["database"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "not ready",
					"service": serviceName,
					"checks":  checks,
				})
				return
			}
			checks["database"] = "ok"
		}
		if redis != nil {
			if err := redis(ctx); err != nil {
				checks["redis"] = "degraded: " + err.Error()
			} else {
				checks["redis"] = "ok"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ready",
			"service": serviceName,
			"checks":  checks,
		})
	}
}
