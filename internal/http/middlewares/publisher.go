package middlewares

import (
	"github.com/geocoder89/agencysite/internal/realtime"
	"github.com/gin-gonic/gin"
)

// InjectPublisher makes the realtime publisher reachable from every request.
func InjectPublisher(p realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxPublisher, p)
		c.Next()
	}
}

// PublisherFromContext returns nil when no publisher was injected.
func PublisherFromContext(c *gin.Context) realtime.Publisher {
	v, ok := c.Get(CtxPublisher)
	if !ok {
		return nil
	}
	p, _ := v.(realtime.Publisher)
	return p
}
