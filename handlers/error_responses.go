package handlers

import (
	"encoding/json"
	"errors"

	"github.com/a-h/templ"
	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/views"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// triggerNotification triggers an HTMX notification if the request is HTMX
func triggerNotification(c *fiber.Ctx, message string, status string) {
	if IsHTMXRequest(c) {
		notification := map[string]interface{}{
			"showNotification": map[string]string{
				"message": message,
				"status":  status,
			},
		}
		jsonBytes, _ := json.Marshal(notification)
		c.Set("HX-Trigger", string(jsonBytes))
	}
}

// renderComponent writes a templ component with the given status code.
func renderComponent(c *fiber.Ctx, status int, component templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(component, templ.WithStatus(status)))
	return handler(c)
}

// ErrorHandler is the application-wide fiber error handler. Fiber errors keep
// their status and message, missing records become 404 and anything else is
// logged and reported as a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := ErrInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		if code < fiber.StatusInternalServerError {
			message = fiberErr.Message
		}
	case errors.Is(err, models.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		code = fiber.StatusNotFound
		message = ErrNotFound
	}

	if code >= fiber.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Method(), c.OriginalURL(), err)
	}

	if IsHTMXRequest(c) {
		status := "warning"
		if code >= fiber.StatusInternalServerError || code == fiber.StatusForbidden {
			status = "destructive"
		}
		triggerNotification(c, message, status)
		return c.Status(code).SendString("")
	}

	if code == fiber.StatusNotFound && message == ErrNotFound {
		return renderComponent(c, code, views.NotFound(c.Path()))
	}
	return renderComponent(c, code, views.Error(code, message))
}
