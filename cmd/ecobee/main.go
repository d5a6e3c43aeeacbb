// Package main is the entry point for the ecobee CLI, an unofficial tool
// that drives Ecobee thermostats through their consumer web API. The public
// API was retired, so authentication rides on a saved browser session; see
// internal/auth for the lifecycle.
package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/sumesh2279/ecobee-cli/internal/buildinfo"
	"github.com/sumesh2279/ecobee-cli/internal/cli"
	"github.com/sumesh2279/ecobee-cli/internal/logging"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
			if !errors.Is(errLoad, os.ErrNotExist) {
				log.WithError(errLoad).Warn("failed to load .env file")
			}
		}
	}

	cli.Execute()
}
