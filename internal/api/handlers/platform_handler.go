package handlers

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/suryatejavarmaa/DigiMark-sub000/configs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

type PlatformHandler struct {
	cs  service.ConnectionService
	ws  service.WizardService
	cfg config.Config
}

func NewPlatformHandler(cs service.ConnectionService, ws service.WizardService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		cs:  cs,
		ws:  ws,
		cfg: cfg,
	}
}

func (h *PlatformHandler) ListConnections(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.cs.Load(c.Context(), userID); err != nil {
		slog.Info(err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(h.cs.List(userID))
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	platform := c.Query("platform")
	if platform == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platform is required",
		})
	}

	h.cs.Disconnect(c.Context(), GetUserID(c), platform)
	return c.SendStatus(fiber.StatusOK)
}

func (h *PlatformHandler) DisconnectAll(c *fiber.Ctx) error {
	h.cs.DisconnectAll(c.Context(), GetUserID(c))
	return c.SendStatus(fiber.StatusOK)
}

// Suspend snapshots the wizard and answers the authorization URL the client should
// navigate to.
func (h *PlatformHandler) Suspend(c *fiber.Ctx) error {
	var req transfer.SuspendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}
	if req.Origin == "" {
		req.Origin = h.cfg.FrontendURL
	}

	suspension, err := h.ws.Suspend(c.Context(), GetUserID(c), DeviceID(c), TabID(c), req.Platform, req.Origin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(suspension)
}

// Resume is called by the client when it loads an address carrying the
// platform-connected indicator.
func (h *PlatformHandler) Resume(c *fiber.Ctx) error {
	returnURL := c.Query("url")
	if returnURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	session, result, err := h.ws.Resume(c.Context(), GetUserID(c), DeviceID(c), TabID(c), returnURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"session": session,
		"result":  result,
	})
}

// ReturnLanding is a server-side landing for the authorization redirect. It resumes
// the wizard and forwards the browser to the restored screen.
func (h *PlatformHandler) ReturnLanding(c *fiber.Ctx) error {
	platform := strings.ToLower(c.Params("platform"))
	query := url.Values{}
	query.Set(service.QueryConnected, platform)
	query.Set(service.QuerySuccess, c.Query(service.QuerySuccess))
	returnURL := fmt.Sprintf("%s?%s", h.cfg.FrontendURL, query.Encode())

	device := c.Query("device", DeviceID(c))
	if !clientIDPattern.MatchString(device) {
		device = defaultDevice
	}

	session, result, err := h.ws.Resume(c.Context(), GetUserID(c), device, TabID(c), returnURL)
	if err != nil {
		slog.Info(err.Error())
		return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
	}

	target, err := url.Parse(result.CleanURL)
	if err != nil {
		return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
	}
	q := target.Query()
	q.Set("screen", string(session.Screen))
	target.RawQuery = q.Encode()

	return c.Redirect(target.String(), fiber.StatusTemporaryRedirect)
}
