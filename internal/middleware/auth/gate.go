package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/service/token"
)

const (
	AccessCookie  = "token"
	RefreshCookie = "refreshToken"

	// ShopAsUserParam lets an admin browse the storefront without being
	// bounced back to the admin area.
	ShopAsUserParam = "shopAsUser"

	loginPath = "/login"
	homePath  = "/"
	adminPath = "/admin"
)

// Gate verifies the access token cookie on protected routes, enforces role
// checks, and attaches the caller's identity for downstream handlers. Auth and
// refresh endpoints are registered outside the gate and never pass through it.
type Gate struct {
	Tokens *token.Service
}

func (g *Gate) RequireAuth() echo.MiddlewareFunc  { return g.middleware(false) }
func (g *Gate) RequireAdmin() echo.MiddlewareFunc { return g.middleware(true) }

func (g *Gate) middleware(adminOnly bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			api := isAPIPath(c.Request().URL.Path)

			var claims *token.AccessClaims
			if cookie, err := c.Cookie(AccessCookie); err == nil && cookie.Value != "" {
				if parsed, err := g.Tokens.ParseAccess(cookie.Value); err == nil {
					if _, ok := g.Tokens.Sessions.Validate(c.Request().Context(), parsed.SessionID); ok {
						claims = parsed
					}
				}
			}

			if claims == nil {
				// A page request holding a refresh token is let through
				// unauthenticated so the client can attempt a silent refresh.
				if !api {
					if rc, err := c.Cookie(RefreshCookie); err == nil && rc.Value != "" {
						return next(c)
					}
				}
				return g.unauthenticated(c, api)
			}

			if adminOnly && claims.Role != models.RoleAdmin {
				if api {
					return echo.NewHTTPError(http.StatusForbidden, "admin access required")
				}
				return c.Redirect(http.StatusFound, homePath)
			}

			if !adminOnly && claims.Role == models.RoleAdmin && !api {
				if !bypassAdminRedirect(c) {
					return c.Redirect(http.StatusFound, adminPath)
				}
			}

			setIdentity(c, claims)
			return next(c)
		}
	}
}

func (g *Gate) unauthenticated(c echo.Context, api bool) error {
	if api {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.Redirect(http.StatusFound, loginPath)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func bypassAdminRedirect(c echo.Context) bool {
	v := c.QueryParam(ShopAsUserParam)
	return v == "true" || v == "1"
}

func setIdentity(c echo.Context, claims *token.AccessClaims) {
	c.Set("userID", claims.UserID)
	c.Set("userRole", claims.Role)
	c.Set("sessionID", claims.SessionID)
	c.Request().Header.Set("X-User-Id", strconv.FormatUint(uint64(claims.UserID), 10))
	c.Request().Header.Set("X-User-Role", string(claims.Role))
}

// UserID returns the authenticated user's id set by the gate.
func UserID(c echo.Context) (uint, bool) {
	v, ok := c.Get("userID").(uint)
	return v, ok
}

// UserRole returns the authenticated user's role set by the gate.
func UserRole(c echo.Context) (models.Role, bool) {
	v, ok := c.Get("userRole").(models.Role)
	return v, ok
}

// SessionID returns the session id set by the gate.
func SessionID(c echo.Context) (string, bool) {
	v, ok := c.Get("sessionID").(string)
	return v, ok
}
