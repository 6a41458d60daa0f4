package embedded

import "io/fs"

// Package-level filesystem variables for embedded files.
// Set once at startup via Init() and read by consumer packages.
var (
	Views  fs.FS
	Assets fs.FS
)

// Init sets the embedded filesystems. Must be called before the
// HTTP application is built.
func Init(views, assets fs.FS) {
	Views = views
	Assets = assets
}
