package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// IsHTMXRequest checks if the request is from HTMX
func IsHTMXRequest(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

// isHTMXHistoryRestore reports whether HTMX asks for a full page to restore history.
func isHTMXHistoryRestore(c *fiber.Ctx) bool {
	return c.Get("HX-History-Restore-Request") == "true"
}

// ParseInt64Param parses a positive int64 route parameter, answering 404 when
// it is malformed.
func ParseInt64Param(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, ErrNotFound)
	}
	return id, nil
}

// parseFolderQuery reads the optional ?folder= query parameter.
func parseFolderQuery(c *fiber.Ctx) (*int64, error) {
	raw := c.Query("folder")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, ErrFolderNotFound)
	}
	return &id, nil
}
