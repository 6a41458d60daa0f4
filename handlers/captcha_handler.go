package handlers

import (
	"strings"

	"github.com/dchest/captcha"
	fiber "github.com/gofiber/fiber/v2"
)

// HandleCaptchaImage serves captcha images
func HandleCaptchaImage(c *fiber.Ctx) error {
	id := strings.TrimSuffix(c.Params("id"), ".png")
	c.Type("png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	if err := captcha.WriteImage(c.Response().BodyWriter(), id, captcha.StdWidth, captcha.StdHeight); err != nil {
		if err == captcha.ErrNotFound {
			return fiber.NewError(fiber.StatusNotFound, ErrNotFound)
		}
		return err
	}
	return nil
}
