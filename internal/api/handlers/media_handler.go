package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

type MediaHandler struct {
	ms service.MediaService
	ws service.WizardService
}

func NewMediaHandler(ms service.MediaService, ws service.WizardService) *MediaHandler {
	return &MediaHandler{ms: ms, ws: ws}
}

// UploadMedia stores the file and makes it the draft's media.
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	userID := GetUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing file",
		})
	}

	ref, err := h.ms.Upload(c.Context(), userID, file)
	if err != nil {
		return respondError(c, err)
	}

	session, err := h.ws.UpdateDraft(c.Context(), userID, DeviceID(c), transfer.DraftUpdate{MediaRef: &ref.URL})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"media":   ref,
		"session": session,
	})
}
