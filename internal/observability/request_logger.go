package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestIDKey is the fiber.Locals key holding the request id.
const RequestIDKey = "request_id"

// RequestID returns the id assigned to the current request, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}

// RequestLogger logs every request and feeds the request counters. Routes
// are keyed by their pattern so ticket ids do not explode the series.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		path := c.Route().Path
		if path == "" || path == "/" {
			path = c.Path()
		}
		metrics.RecordRequest(path, c.Method(), status, latency)

		fields := []zap.Field{
			zap.String("request_id", RequestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}
