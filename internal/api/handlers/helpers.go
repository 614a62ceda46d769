package handlers

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

const (
	HeaderDeviceID = "X-Device-ID"
	HeaderTabID    = "X-Tab-ID"
	defaultDevice  = "default"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

// DeviceID identifies the wizard session of the calling device.
func DeviceID(c *fiber.Ctx) string {
	if id := c.Get(HeaderDeviceID); clientIDPattern.MatchString(id) {
		return id
	}
	return defaultDevice
}

// TabID identifies the browsing session; it survives the full-page redirect but is not
// shared between tabs. Full-page navigations pass it as the "tab" query parameter.
func TabID(c *fiber.Ctx) string {
	id := c.Get(HeaderTabID)
	if id == "" {
		id = c.Query("tab")
	}
	if clientIDPattern.MatchString(id) {
		return id
	}
	return ""
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrSessionBusy):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
