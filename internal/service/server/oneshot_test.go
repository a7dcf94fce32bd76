package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/psfree-host/internal/config"
)

// TestGenerateManifest_UsesConfiguredExclusions reads the policy from the settings file.
func TestGenerateManifest_UsesConfiguredExclusions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.me"), []byte("x"), 0o600))

	settings := config.Default()
	settings.ManifestFile = "cache.manifest"
	settings.LogLevel = "error"
	settings.Exclusions.Extensions = []string{".me"}

	configPath := filepath.Join(t.TempDir(), "psfree-host.yaml")
	require.NoError(t, config.Save(configPath, settings))

	result, err := GenerateManifest(context.Background(), &Options{ConfigPath: configPath, RootDir: root})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "cache.manifest"), result.Path)

	contents, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "\nindex.html\n")
	require.NotContains(t, string(contents), "skip.me")
}

func TestGenerateManifest_MissingRoot(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "absent.yaml")
	root := filepath.Join(t.TempDir(), "missing")

	_, err := GenerateManifest(context.Background(), &Options{ConfigPath: configPath, RootDir: root, LogLevel: "error"})
	require.ErrorIs(t, err, os.ErrNotExist)
}
