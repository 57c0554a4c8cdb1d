package handlers

import "github.com/gofiber/fiber/v2"

func getRequestID(c *fiber.Ctx) string {
	if requestID, ok := c.Locals("requestID").(string); ok {
		return requestID
	}
	return ""
}
