package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

type WizardHandler struct {
	ws service.WizardService
}

func NewWizardHandler(ws service.WizardService) *WizardHandler {
	return &WizardHandler{ws: ws}
}

func (h *WizardHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.ws.Session(c.Context(), GetUserID(c), DeviceID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *WizardHandler) Transition(c *fiber.Ctx) error {
	var req transfer.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	ev := service.Event{
		Type:    service.EventType(req.Type),
		Target:  req.Target,
		Context: models.ParseReturnContext(req.Context),
	}
	if ev.Type == "" {
		ev.Type = service.EventNavigate
	}

	session, err := h.ws.Transition(c.Context(), GetUserID(c), DeviceID(c), ev)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *WizardHandler) UpdateDraft(c *fiber.Ctx) error {
	var update transfer.DraftUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	session, err := h.ws.UpdateDraft(c.Context(), GetUserID(c), DeviceID(c), update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// batchResponse answers a finished batch. An aborted batch still carries the session
// so the client can show the triage screen.
func batchResponse(c *fiber.Ctx, session *models.WizardSession, err error) error {
	if err != nil && session == nil {
		return respondError(c, err)
	}
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"session": session,
		})
	}
	return c.JSON(session)
}

func (h *WizardHandler) Publish(c *fiber.Ctx) error {
	session, err := h.ws.Publish(c.Context(), GetUserID(c), DeviceID(c))
	return batchResponse(c, session, err)
}

func (h *WizardHandler) RetryFailed(c *fiber.Ctx) error {
	session, err := h.ws.Retry(c.Context(), GetUserID(c), DeviceID(c))
	return batchResponse(c, session, err)
}

func (h *WizardHandler) ScheduleTime(c *fiber.Ctx) error {
	var req transfer.ScheduleTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	session, err := h.ws.ScheduleTime(c.Context(), GetUserID(c), DeviceID(c), req.DisplayTime)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *WizardHandler) Commit(c *fiber.Ctx) error {
	session, post, err := h.ws.Commit(c.Context(), GetUserID(c), DeviceID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": session,
		"post":    post,
	})
}

func (h *WizardHandler) EditTime(c *fiber.Ctx) error {
	var req transfer.EditTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	session, err := h.ws.EditTime(c.Context(), GetUserID(c), DeviceID(c), req.PostID, req.DisplayTime)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *WizardHandler) PublishNow(c *fiber.Ctx) error {
	session, err := h.ws.PublishNow(c.Context(), GetUserID(c), DeviceID(c), c.Query("id"))
	return batchResponse(c, session, err)
}
