package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vocab-service/internal/api/dto"
	"github.com/spec-kit/vocab-service/internal/service"
)

// OAuthHandler exposes the Google OAuth entry and callback endpoints.
type OAuthHandler struct {
	oauth *service.OAuthService
}

// NewOAuthHandler constructs handler.
func NewOAuthHandler(oauthService *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauth: oauthService}
}

// Redirect handles GET /auth/oauth/google.
func (h *OAuthHandler) Redirect(c *fiber.Ctx) error {
	url, err := h.oauth.AuthCodeURL(c.UserContext())
	if err != nil {
		return err
	}
	return c.Redirect(url, http.StatusFound)
}

// Callback handles GET /auth/oauth/google/callback.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		return fiber.NewError(http.StatusBadRequest, "missing authorization code")
	}

	profile, token, exp, err := h.oauth.HandleCallback(c.UserContext(), state, code)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewProfileResponse(profile, ""),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
