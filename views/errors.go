package views

import "net/http"

//go:generate templ generate

func statusTitle(status int) string {
	if title := http.StatusText(status); title != "" {
		return title
	}
	return "Error"
}
