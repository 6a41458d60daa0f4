package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/dchest/captcha"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndReady(t *testing.T) {
	for _, path := range []string{"/health", "/ready"} {
		resp := getPage(t, path)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "OK", readBody(t, resp))
	}
}

func TestMetricsRequiresAdmin(t *testing.T) {
	resp := getPage(t, "/metrics", signIn(t, "metrics_peeker"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = getPage(t, "/metrics", signIn(t, "root"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "drivespace_total_users")
	assert.Contains(t, body, "drivespace_stored_bytes")
}

func TestCaptchaImage(t *testing.T) {
	id := captcha.NewLen(6)
	resp := getPage(t, "/captcha/"+id+".png")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.True(t, strings.HasPrefix(readBody(t, resp), "\x89PNG"))

	resp = getPage(t, "/captcha/unknown.png")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssetsServed(t *testing.T) {
	resp := getPage(t, "/assets/css/app.css")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), ".workspace")
}

func TestNotFoundPage(t *testing.T) {
	resp := getPage(t, "/no/such/page/")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Page not found")

	req := newGet("/no/such/page/")
	req.Header.Set("HX-Request", "true")
	resp = doRequest(t, testApp, req)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("HX-Trigger"), ErrNotFound)
	assert.Empty(t, readBody(t, resp))
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, ErrInternalServerError)
	assert.NotContains(t, body, assert.AnError.Error())
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestCSRFProtection(t *testing.T) {
	app := NewApp(Options{Storage: testStorage, DisableAccessLog: true})

	post := func(values url.Values, cookies ...*http.Cookie) *http.Response {
		req := httptest.NewRequest(fiber.MethodPost, "/create-account/", strings.NewReader(values.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		return doRequest(t, app, req, cookies...)
	}

	resp := post(registration("csrf_blocked"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Your form has expired")

	page := doRequest(t, app, newGet("/create-account/"))
	require.Equal(t, fiber.StatusOK, page.StatusCode)
	cookie := findCookie(page, "csrf_")
	require.NotNil(t, cookie)
	match := csrfInput.FindStringSubmatch(readBody(t, page))
	require.Len(t, match, 2)

	values := registration("csrf_allowed")
	values.Set("csrf_token", match[1])
	resp = post(values, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}
