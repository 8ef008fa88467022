package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scalpcare-backend/internal/shared/telemetry"
	"scalpcare-backend/internal/shared/util"
)

// Context keys handlers set so the request log can carry them.
const (
	AssessmentIDKey     = "assessmentId"
	CustomerPhoneKey    = "customerPhone"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request. Customer phones are logged
// hashed, never in clear.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		customer := ""
		if phone := c.GetString(CustomerPhoneKey); phone != "" {
			customer = util.HashKey(phone)
		}

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"assessment_id":     c.GetString(AssessmentIDKey),
			"customer_hash":     customer,
			"bytes_in":          c.Request.ContentLength,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
