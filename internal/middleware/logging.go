package middleware

import (
	"time"

	"github.com/burnbox/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		latency := time.Since(start)
		statusCode := c.Response().StatusCode()

		details := map[string]interface{}{
			"method":        c.Method(),
			"path":          c.Path(),
			"status_code":   statusCode,
			"latency_ms":    latency.Milliseconds(),
			"user_agent":    c.Get("User-Agent"),
			"ip":            c.IP(),
			"request_body":  logger.GetRequestBodySummary(c),
			"response_body": logger.GetResponseSizeSummary(c),
			"request_id":    requestID,
		}

		if statusCode >= 400 {
			logger.Error("http_request", err, details)
		} else {
			logger.Info("http_request", details)
		}

		return err
	}
}

// SecurityLogger flags dead-link probing: 404s and 410s are the signatures
// of someone walking the token space.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		statusCode := c.Response().StatusCode()

		if statusCode == fiber.StatusNotFound || statusCode == fiber.StatusGone {
			logger.Warn("dead_link_request", map[string]interface{}{
				"method":      c.Method(),
				"path":        c.Path(),
				"status_code": statusCode,
				"ip":          c.IP(),
			})
		}

		return err
	}
}
