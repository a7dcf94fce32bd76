package server

import (
	"net/http"

	"github.com/oshokin/psfree-host/internal/config"
	"github.com/oshokin/psfree-host/internal/service/manifest"
	"github.com/oshokin/psfree-host/internal/service/updater"
)

// NewGenerator builds the manifest generator described by cfg.
func NewGenerator(cfg *config.Config) *manifest.Generator {
	policy := manifest.NewPolicy(
		cfg.Exclusions.Dirs,
		cfg.Exclusions.Extensions,
		cfg.Exclusions.Files,
	)

	return manifest.NewGenerator(policy, cfg.ManifestFile)
}

// NewUpdater builds the asset updater for the built-in asset table.
func NewUpdater(cfg *config.Config) *updater.Updater {
	client := &http.Client{Timeout: cfg.DownloadTimeout}

	return updater.New(updater.DefaultAssets(), updater.WithHTTPClient(client))
}
