package handlers

import (
	"errors"
	"strings"

	"github.com/drivespace/drivespace/forms"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleCreateAccount renders the registration form on GET and processes it
// on POST. A valid submission creates the user and redirects to the index; an
// invalid one re-renders the form with its errors.
func HandleCreateAccount(c *fiber.Ctx) error {
	cfg, err := models.GetAppConfig()
	if err != nil {
		return err
	}
	count, err := models.CountUsers()
	if err != nil {
		return err
	}
	if !cfg.RegistrationOpen(count) {
		if cfg.AllowRegistration {
			return fiber.NewError(fiber.StatusForbidden, ErrMaxUsersReached)
		}
		return fiber.NewError(fiber.StatusForbidden, ErrRegistrationClosed)
	}

	var form *forms.UserCreationForm
	if c.Method() == fiber.MethodPost {
		form = &forms.UserCreationForm{RequireCaptcha: cfg.RequireCaptcha}
		if err := form.Bind(c); err != nil {
			log.Debugf("Rejecting registration body: %v", err)
			return fiber.NewError(fiber.StatusBadRequest, ErrBadRequest)
		}

		if form.IsValid() {
			user, err := form.Save()
			switch {
			case err == nil:
				registrationsTotal.Inc()
				log.Infof("Account '%s' created", user.Username)
				AddMessage(c, LevelSuccess, MsgAccountCreated)
				return redirect(c, MustReverse("index"))
			case !errors.Is(err, forms.ErrInvalidForm):
				return err
			}
		}
		AddMessage(c, LevelError, ErrValidationFailed)
	} else {
		form = forms.NewUserCreationForm(cfg.RequireCaptcha)
	}

	return render(c, "pages/create-account", fiber.Map{
		"Title": "Create account",
		"Form":  form,
	})
}

// HandleLogin checks the submitted credentials and starts a session.
func HandleLogin(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	next := c.FormValue("next")

	throttleKey := signInKey(c, username)
	if signInLocked(throttleKey) {
		signInsTotal.WithLabelValues("throttled").Inc()
		c.Status(fiber.StatusTooManyRequests)
		return render(c, "pages/index", fiber.Map{
			"Title":      "Sign in",
			"LoginError": ErrTooManySignIns,
			"Username":   username,
			"Next":       next,
		})
	}

	user, err := models.Authenticate(username, password)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) && !errors.Is(err, models.ErrUserInactive) {
			return err
		}
		recordSignInFailure(throttleKey)
		signInsTotal.WithLabelValues("failure").Inc()
		log.Debugf("Sign-in failed for '%s': %v", username, err)
		c.Status(fiber.StatusUnauthorized)
		return render(c, "pages/index", fiber.Map{
			"Title":      "Sign in",
			"LoginError": ErrInvalidCredentials,
			"Username":   username,
			"Next":       next,
		})
	}

	resetSignInFailures(throttleKey)

	token, err := models.CreateSessionToken(user.Username)
	if err != nil {
		return err
	}
	setSessionCookie(c, token)
	if err := models.RecordLogin(user.Username); err != nil {
		log.Warnf("Failed to record sign-in for '%s': %v", user.Username, err)
	}
	signInsTotal.WithLabelValues("success").Inc()

	return redirect(c, utils.SafeRedirectTarget(next, MustReverse("workspace")))
}

// HandleLogout ends the current session.
func HandleLogout(c *fiber.Ctx) error {
	if token := c.Cookies(sessionCookieName); token != "" {
		if err := models.DeleteSessionToken(token); err != nil {
			log.Warnf("Failed to delete session: %v", err)
		}
	}
	clearSessionCookie(c)
	c.Locals(userLocalKey, nil)
	AddMessage(c, LevelInfo, MsgSignedOut)
	return redirect(c, MustReverse("index"))
}
