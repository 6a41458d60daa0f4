// Package views holds the HTML templates rendered by the fiber html engine
// and the templ components used for error pages.
package views

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templateFiles embed.FS

// Templates returns the template tree rooted so that names look like
// "pages/index" and "layouts/base".
func Templates() fs.FS {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// BaseLayout is the layout every full page is wrapped in.
const BaseLayout = "layouts/base"
