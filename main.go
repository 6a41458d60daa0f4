package main

import (
	"embed"
	"io/fs"
	"os"

	"github.com/drivespace/drivespace/cmd"
	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Version = "develop"

//go:embed assets
var assetsfs embed.FS

func main() {
	// A missing .env is fine; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env: %v", err)
	}

	assets, err := fs.Sub(assetsfs, "assets")
	if err != nil {
		log.Fatalf("Failed to load embedded assets: %v", err)
	}

	if err := cmd.NewRootCmd(Version, assets).Execute(); err != nil {
		os.Exit(1)
	}
}
