package handlers

import (
	"errors"

	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleAdmin shows an overview of users and storage and edits the
// application settings.
func HandleAdmin(c *fiber.Ctx) error {
	cfg, err := models.GetAppConfig()
	if err != nil {
		return err
	}

	if c.Method() == fiber.MethodPost {
		var update models.AppConfig
		if err := c.BodyParser(&update); err != nil {
			log.Debugf("Rejecting settings body: %v", err)
			return fiber.NewError(fiber.StatusBadRequest, ErrBadRequest)
		}

		saved, err := models.UpdateAppConfig(update)
		switch {
		case err == nil:
			log.Infof("Settings updated by '%s': %+v", CurrentUser(c).Username, saved)
			AddMessage(c, LevelSuccess, MsgConfigSaved)
			return redirect(c, MustReverse("admin"))
		case errors.Is(err, models.ErrInvalidConfig):
			AddMessage(c, LevelError, ErrValidationFailed)
			cfg = update
		default:
			log.Errorf("Failed to update settings: %v", err)
			AddMessage(c, LevelError, ErrConfigUpdateFailed)
		}
	}

	users, err := models.GetUsers()
	if err != nil {
		return err
	}
	folderCount, err := models.CountFolders()
	if err != nil {
		return err
	}
	stats, err := models.GetFileStats()
	if err != nil {
		return err
	}
	sessionCount, err := models.CountActiveSessions()
	if err != nil {
		return err
	}

	return render(c, "pages/admin", fiber.Map{
		"Title":          "Administration",
		"Config":         cfg,
		"Users":          users,
		"FolderCount":    folderCount,
		"Stats":          stats,
		"SessionCount":   sessionCount,
		"StorageBackend": storage.Name(),
		"LastAudit":      scheduler.LastStorageAudit(),
	})
}
