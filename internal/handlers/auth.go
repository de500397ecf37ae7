package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/events"
	"github.com/gemcraft/storefront/internal/hash"
	authmw "github.com/gemcraft/storefront/internal/middleware/auth"
	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/service/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *events.Producer
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair token.Pair) {
	c.SetCookie(CreateCookie(authmw.AccessCookie, pair.AccessToken, "/", pair.AccessExpiresAt))
	c.SetCookie(CreateCookie(authmw.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExpiresAt))
}

func clearTokenCookies(c echo.Context) {
	expired := time.Now().Add(-time.Hour)
	c.SetCookie(CreateCookie(authmw.AccessCookie, "", "/", expired))
	c.SetCookie(CreateCookie(authmw.RefreshCookie, "", "/", expired))
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "email and a password of at least 8 characters are required")
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	// Role is always forced to user here; admins are promoted out of band.
	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		AdminLogin bool   `json:"adminLogin"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, pair, err := h.Tokens.Login(c.Request().Context(), req.Email, req.Password, req.AdminLogin)
	if err != nil {
		var locked *token.LockedError
		switch {
		case errors.As(err, &locked):
			return echo.NewHTTPError(http.StatusLocked, locked.Error())
		case errors.Is(err, token.ErrInvalidCredentials), errors.Is(err, token.ErrInactive):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
		}
	}

	if req.AdminLogin && user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	h.setTokenCookies(c, pair)

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"isAdmin":      user.Role == models.RoleAdmin,
	})
}

// Refresh rotates the refresh token cookie into a fresh pair. The route sits
// outside the access gate; it does its own verification.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(authmw.RefreshCookie)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	user, pair, err := h.Tokens.Rotate(c.Request().Context(), cookie.Value)
	if err != nil {
		clearTokenCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	h.setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"isAdmin":      user.Role == models.RoleAdmin,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var userID uint
	var sessionID string

	if ck, err := c.Cookie(authmw.AccessCookie); err == nil && ck.Value != "" {
		if claims, err := h.Tokens.ParseAccess(ck.Value); err == nil {
			userID, sessionID = claims.UserID, claims.SessionID
		}
	}
	if userID == 0 {
		if ck, err := c.Cookie(authmw.RefreshCookie); err == nil && ck.Value != "" {
			if claims, err := h.Tokens.ParseRefresh(ck.Value); err == nil {
				userID, sessionID = claims.UserID, claims.SessionID
			}
		}
	}

	if userID != 0 {
		if err := h.Tokens.Revoke(c.Request().Context(), userID, sessionID); err != nil {
			c.Logger().Errorf("logout revoke error: %v", err)
		}
	}

	clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll drops every live session of the authenticated user and clears the
// stored refresh token, ending all other devices' logins server-side.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if err := h.Tokens.Sessions.InvalidateUser(c.Request().Context(), userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}
	if err := h.Tokens.Revoke(c.Request().Context(), userID, ""); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out everywhere"})
}
