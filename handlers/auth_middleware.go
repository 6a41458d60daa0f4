package handlers

import (
	"errors"
	"net/url"
	"time"

	"github.com/drivespace/drivespace/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	sessionCookieName = "session_token"
	userLocalKey      = "user"
)

// SessionMiddleware resolves the session cookie to a user and stores it in
// c.Locals("user"). Invalid or expired cookies are cleared.
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessionCookieName)
		if token == "" {
			return c.Next()
		}

		username, err := models.ValidateSessionToken(token)
		if err != nil {
			if !errors.Is(err, models.ErrInvalidSession) && !errors.Is(err, models.ErrExpiredSession) {
				log.Warnf("Session validation failed: %v", err)
			}
			clearSessionCookie(c)
			return c.Next()
		}

		user, err := models.FindUserByUsername(username)
		if err != nil {
			return err
		}
		if user == nil || !user.Active {
			clearSessionCookie(c)
			return c.Next()
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

// LoginRequired redirects anonymous requests to loginURL, passing the
// requested URL as ?next=. The rest of the chain does not run.
func LoginRequired(loginURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.Next()
		}
		return redirectToLogin(c, loginURL)
	}
}

// AdminRequired only lets admins through. Anonymous requests are sent to the
// sign-in page, other users get a 403.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return redirectToLogin(c, loginURL)
		}
		if !user.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, ErrForbidden)
		}
		return c.Next()
	}
}

func redirectToLogin(c *fiber.Ctx, loginURL string) error {
	target := loginURL + "?next=" + url.QueryEscape(c.OriginalURL())
	if IsHTMXRequest(c) {
		c.Set("HX-Redirect", target)
	}
	return c.Redirect(target, fiber.StatusFound)
}

func setSessionCookie(c *fiber.Ctx, token string) {
	// Secure requires HTTPS; Lax so top-level navigations send the cookie.
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(models.SessionTokenDuration),
		MaxAge:   int(models.SessionTokenDuration.Seconds()),
		HTTPOnly: true,
		Secure:   isSecureRequest(c),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   isSecureRequest(c),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// isSecureRequest returns true if the request is using HTTPS or forwarded as HTTPS.
func isSecureRequest(c *fiber.Ctx) bool {
	if c.Secure() || c.Protocol() == "https" {
		return true
	}
	// Respect common proxy headers
	if proto := c.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	if https := c.Get("X-Forwarded-SSL"); https == "on" || https == "1" {
		return true
	}
	return false
}
