package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dchest/captcha"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils/email"
	"github.com/gofiber/fiber/v2"
)

// Messages shown for user creation errors.
const (
	msgRequired         = "This field is required."
	msgPasswordMismatch = "The two password fields didn't match."
	msgUsernameTaken    = "A user with that username already exists."
	msgEmailTaken       = "A user with that email address already exists."
	msgEmailDisposable  = "Disposable email addresses are not accepted."
	msgCaptchaWrong     = "The characters you entered did not match the image."
)

// UserCreationForm creates a user from username, optional email and a
// password entered twice.
type UserCreationForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	Password1 string `form:"password1"`
	Password2 string `form:"password2"`

	CaptchaID     string `form:"captcha_id"`
	CaptchaAnswer string `form:"captcha"`

	// RequireCaptcha makes the captcha fields mandatory.
	RequireCaptcha bool `form:"-"`

	Errors Errors `form:"-"`

	validated bool
}

// NewUserCreationForm returns an unbound form. A new captcha challenge is
// issued when requireCaptcha is set.
func NewUserCreationForm(requireCaptcha bool) *UserCreationForm {
	f := &UserCreationForm{RequireCaptcha: requireCaptcha, Errors: Errors{}}
	if requireCaptcha {
		f.CaptchaID = captcha.NewLen(6)
	}
	return f
}

// Bind fills the form from a urlencoded or multipart request body.
func (f *UserCreationForm) Bind(c *fiber.Ctx) error {
	if err := c.BodyParser(f); err != nil {
		return fmt.Errorf("bind user creation form: %w", err)
	}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.validated = false
	return nil
}

// FieldErrors returns the errors found by IsValid.
func (f *UserCreationForm) FieldErrors() Errors {
	return f.Errors
}

// IsValid validates the bound data once and records any errors.
func (f *UserCreationForm) IsValid() bool {
	if f.validated {
		return !f.Errors.Any()
	}
	f.validated = true
	f.Errors = Errors{}

	f.Errors.merge(models.ValidateFields(&models.User{Username: f.Username, Email: f.Email}, "Username", "Email"))

	if f.Password1 == "" {
		f.Errors.Add("password1", msgRequired)
	}
	if f.Password2 == "" {
		f.Errors.Add("password2", msgRequired)
	}
	if f.Password1 != "" && f.Password2 != "" {
		if f.Password1 != f.Password2 {
			f.Errors.Add("password2", msgPasswordMismatch)
		} else {
			for _, problem := range models.PasswordProblems(f.Password2, f.Username) {
				f.Errors.Add("password2", problem.Error())
			}
		}
	}

	if f.RequireCaptcha {
		// VerifyString consumes the challenge, so a failed attempt needs a new one.
		if f.CaptchaID == "" || !captcha.VerifyString(f.CaptchaID, f.CaptchaAnswer) {
			f.Errors.Add("captcha", msgCaptchaWrong)
			f.CaptchaID = captcha.NewLen(6)
		}
	}
	f.CaptchaAnswer = ""

	if !f.Errors.Has("username") {
		exists, err := models.UsernameExists(f.Username)
		if err != nil {
			f.Errors.Add(NonFieldErrors, err.Error())
		} else if exists {
			f.Errors.Add("username", msgUsernameTaken)
		}
	}
	if f.Email != "" && !f.Errors.Has("email") && email.IsDisposable(f.Email) {
		f.Errors.Add("email", msgEmailDisposable)
	}
	if f.Email != "" && !f.Errors.Has("email") {
		exists, err := models.EmailExists(f.Email)
		if err != nil {
			f.Errors.Add(NonFieldErrors, err.Error())
		} else if exists {
			f.Errors.Add("email", msgEmailTaken)
		}
	}

	return !f.Errors.Any()
}

// Save creates the user. The form must be valid.
func (f *UserCreationForm) Save() (*models.User, error) {
	if !f.IsValid() {
		return nil, ErrInvalidForm
	}

	user, err := models.CreateUser(f.Username, f.Password1, f.Email)
	switch {
	case errors.Is(err, models.ErrUsernameExists):
		f.Errors.Add("username", msgUsernameTaken)
		return nil, ErrInvalidForm
	case errors.Is(err, models.ErrEmailExists):
		f.Errors.Add("email", msgEmailTaken)
		return nil, ErrInvalidForm
	case err != nil:
		return nil, err
	}
	return user, nil
}
