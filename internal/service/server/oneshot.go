package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/psfree-host/internal/logger"
	"github.com/oshokin/psfree-host/internal/service/manifest"
	"github.com/oshokin/psfree-host/internal/service/updater"
)

// ErrAssetsNotUpdated is returned by UpdateAssets when at least one entry failed.
var ErrAssetsNotUpdated = errors.New("some assets were not updated")

// GenerateManifest writes the manifest once, without starting the server.
func GenerateManifest(ctx context.Context, opts *Options) (*manifest.Result, error) {
	ctx = logger.WithName(ctx, "manifest")

	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	result, err := NewGenerator(settings).Generate(ctx, settings.RootDir)
	if err != nil {
		return nil, fmt.Errorf("generate manifest: %w", err)
	}

	return result, nil
}

// UpdateAssets refreshes the asset table once, without starting the server.
// The results are always returned; the error reports failed entries.
func UpdateAssets(ctx context.Context, opts *Options) ([]updater.Result, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	results := NewUpdater(settings).Run(ctx, settings.RootDir)

	failed := 0

	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d: %w", failed, len(results), ErrAssetsNotUpdated)
	}

	return results, nil
}
