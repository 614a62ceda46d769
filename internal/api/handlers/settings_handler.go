package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

type SettingsHandler struct {
	s service.SettingsService
}

func NewSettingsHandler(service service.SettingsService) *SettingsHandler {
	return &SettingsHandler{s: service}
}

func (h *SettingsHandler) GetSettingsInfo(c *fiber.Ctx) error {
	userId := GetUserID(c)

	settingsInfo, err := h.s.GetSettingsInfo(c.Context(), userId)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(settingsInfo)
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	userId := GetUserID(c)

	var settings transfer.SettingsUpdate
	err := c.BodyParser(&settings)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	err = h.s.UpdateSettings(c.Context(), userId, settings.Timezone, settings.PostingTime)
	if err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
