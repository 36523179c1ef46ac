package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
)

// RequestLogger logs one line per request once the handler chain has finished.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		path := c.Request.URL.Path
		elapsed := time.Since(start).Round(time.Microsecond)
		switch {
		case status >= 500:
			logger.Errorf("[http] %s %s %d %s", c.Request.Method, path, status, elapsed)
		case status >= 400:
			logger.Warnf("[http] %s %s %d %s", c.Request.Method, path, status, elapsed)
		default:
			logger.Debugf("[http] %s %s %d %s", c.Request.Method, path, status, elapsed)
		}
	}
}
