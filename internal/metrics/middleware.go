package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records a count and duration for every request. Endpoints
// are labeled by route template so path parameters cannot blow up the
// label cardinality.
func Middleware(p Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		p.IncRequestsTotal(endpoint, c.Writer.Status())
		p.ObserveRequestDuration(endpoint, time.Since(start))
	}
}
