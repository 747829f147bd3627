package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/metrics"
	"github.com/nebari-dev/refstore/internal/ratelimit"
)

// PlanLimits returns the request quota for a plan tier.
type PlanLimits func(plan string) int

// RateLimit enforces the credential's plan quota and echoes it as
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset. A limiter
// failure lets the request through.
func RateLimit(l ratelimit.Limiter, limits PlanLimits, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := auth.GetCredential(c)
		if err != nil {
			c.Next()
			return
		}

		limit := limits(cred.Plan)
		res, err := l.Allow(c.Request.Context(), cred.ID, limit)
		if err != nil {
			slog.Warn("Rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if limit <= 0 {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			retry := int(math.Ceil(time.Until(res.Reset).Seconds()))
			if retry < 1 {
				retry = 1
			}
			h.Set("Retry-After", strconv.Itoa(retry))
			m.RecordRateLimited(cred.Plan)
			response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, "rate limit exceeded for plan "+cred.Plan)
			return
		}

		c.Next()
	}
}
