package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

type UserHandler struct {
	s service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{s: service}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userId := GetUserID(c)

	userInfo, err := h.s.GetUserInfo(c.Context(), userId)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(userInfo)
}

func (h *UserHandler) ListNotifications(c *fiber.Ctx) error {
	userId := GetUserID(c)

	notifications, err := h.s.Notifications(c.Context(), userId)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(notifications)
}
