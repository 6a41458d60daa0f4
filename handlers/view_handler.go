package handlers

import (
	"github.com/drivespace/drivespace/views"
	"github.com/gofiber/fiber/v2"
)

// render renders a page template with the values every page expects. HTMX
// requests get the page without the base layout.
func render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["User"] = CurrentUser(c)
	data["Messages"] = Messages(c)
	data["CSRFToken"] = csrfToken(c)
	data["Path"] = c.Path()

	layout := views.BaseLayout
	if IsHTMXRequest(c) && !isHTMXHistoryRestore(c) {
		layout = ""
	}
	return c.Render(name, data, layout)
}

// redirect answers with a 302, and tells HTMX to do a full navigation.
func redirect(c *fiber.Ctx, location string) error {
	if IsHTMXRequest(c) {
		c.Set("HX-Redirect", location)
	}
	return c.Redirect(location, fiber.StatusFound)
}

// HandleIndex renders the landing page with the sign-in form.
func HandleIndex(c *fiber.Ctx) error {
	title := "Sign in"
	if CurrentUser(c) != nil {
		title = "Home"
	}
	return render(c, "pages/index", fiber.Map{
		"Title": title,
		"Next":  c.Query("next"),
	})
}

// HandleNotFound is the fallback for unmatched routes.
func HandleNotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, ErrNotFound)
}
