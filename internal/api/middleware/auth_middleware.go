package middleware

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/suryatejavarmaa/DigiMark-sub000/configs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
	"github.com/suryatejavarmaa/DigiMark-sub000/pkg/utils"
)

const HeaderAPIKey = "X-API-Key"

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware accepts an API key, a bearer token or the session cookie and stores
// the caller's id in the "user_id" local.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		if bearer := bearerToken(c); bearer != "" {
			tokenString = bearer
		}
		apiKey := c.Get(HeaderAPIKey, c.Query("api_key"))

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Keys or cookies",
			})
		}

		if apiKey != "" {
			userID, err := m.s.GetUserID(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
			c.Locals("user_id", strconv.FormatInt(userID, 10))
			return c.Next()
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString, utils.AudienceSession)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cfg.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})

			slog.Info("token validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if _, err := strconv.ParseInt(claims.UserID, 10, 64); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
