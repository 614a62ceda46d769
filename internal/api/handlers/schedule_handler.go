package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

type ScheduleHandler struct {
	ss service.ScheduleService
}

func NewScheduleHandler(ss service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{ss: ss}
}

func (h *ScheduleHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.ss.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

func (h *ScheduleHandler) SaveEdit(c *fiber.Ctx) error {
	post, err := h.ss.SaveEdit(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *ScheduleHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.ss.Remove(c.Context(), GetUserID(c), c.Query("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
