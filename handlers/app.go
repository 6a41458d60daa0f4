package handlers

import (
	"net/http"
	"time"

	"github.com/drivespace/drivespace/embedded"
	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils"
	"github.com/drivespace/drivespace/views"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
)

// DefaultBodyLimit bounds request bodies. It leaves room for multipart
// overhead above the largest upload limit that can be configured; the
// configured limit itself is enforced by the upload form.
const DefaultBodyLimit = int(models.MaxUploadBytesLimit) + 1<<20

const csrfContextKey = "csrf"

// storage holds uploaded file contents.
var storage filestore.Backend

// Options configures NewApp.
type Options struct {
	// Storage receives uploaded files. Required.
	Storage filestore.Backend
	// BodyLimit overrides DefaultBodyLimit when positive.
	BodyLimit int
	// DisableCSRF turns off CSRF checks, for tests that post forms directly.
	DisableCSRF bool
	// DisableAccessLog silences the request logger.
	DisableAccessLog bool
}

// NewApp builds the fiber application with middleware, templates and routes.
func NewApp(opts Options) *fiber.App {
	storage = opts.Storage

	viewsFS := embedded.Views
	if viewsFS == nil {
		viewsFS = views.Templates()
	}
	engine := html.NewFileSystem(http.FS(viewsFS), ".html")
	engine.AddFunc("url", Reverse)
	engine.AddFunc("humanBytes", utils.HumanBytes)
	engine.AddFunc("date", formatDate)

	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "drivespace",
		Views:                 engine,
		ViewsLayout:           views.BaseLayout,
		ErrorHandler:          ErrorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Minute,
		WriteTimeout:          5 * time.Minute,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if !opts.DisableAccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	if embedded.Assets != nil {
		app.Use("/assets", filesystem.New(filesystem.Config{
			Root:   http.FS(embedded.Assets),
			MaxAge: 3600,
		}))
	} else {
		log.Warn("No embedded assets configured, /assets will not be served")
	}

	app.Get("/health", HandleHealth)
	app.Get("/ready", HandleReady)
	app.Get("/captcha/:id.png", HandleCaptchaImage)

	app.Use(SessionMiddleware())
	app.Use(MessagesMiddleware())
	if !opts.DisableCSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:csrf_token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			Expiration:     2 * time.Hour,
			ContextKey:     csrfContextKey,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				log.Debugf("CSRF check failed for %s %s: %v", c.Method(), c.Path(), err)
				return fiber.NewError(fiber.StatusForbidden, ErrCSRFFailed)
			},
		}))
	}

	app.Get("/metrics", AdminRequired(), HandleMetrics)
	Mount(app, CoreRoutes())
	app.Use(HandleNotFound)

	return app
}

// csrfToken returns the token issued by the CSRF middleware, if any.
func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfContextKey).(string)
	return token
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
