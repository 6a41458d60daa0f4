// Package forms binds request data to model fields, validates it with the
// rules declared on the models and saves valid submissions.
package forms

import (
	"errors"

	"github.com/drivespace/drivespace/models"
)

// NonFieldErrors is the key for errors that do not belong to a single field.
const NonFieldErrors = "__all__"

// ErrInvalidForm is returned by Save when the form did not validate.
var ErrInvalidForm = errors.New("form is not valid")

// Errors maps field names to validation messages.
type Errors map[string][]string

// Add appends msg to field's messages.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NonField returns messages not tied to a field.
func (e Errors) NonField() []string {
	return e[NonFieldErrors]
}

// Any reports whether there is any message at all.
func (e Errors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// merge copies model validation messages into e.
func (e Errors) merge(fieldErrors models.FieldErrors) {
	for field, msgs := range fieldErrors {
		e[field] = append(e[field], msgs...)
	}
}

// Form is implemented by every form in this package.
type Form interface {
	IsValid() bool
	FieldErrors() Errors
}
