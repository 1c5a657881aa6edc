package controllers

import "github.com/gofiber/fiber/v2"

// HandleHealth is a liveness probe; it touches no dependency.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
