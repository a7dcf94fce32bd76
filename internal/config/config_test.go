package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and range validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	settings := Default()
	settings.Port = 0
	require.Error(t, Validate(settings))

	settings = Default()
	settings.ManifestFile = ""
	require.Error(t, Validate(settings))

	settings = Default()
	settings.ManifestFile = "cache/PSFree.manifest"
	require.Error(t, Validate(settings))

	settings = Default()
	settings.DownloadTimeout = -time.Second
	require.Error(t, Validate(settings))

	settings = Default()
	settings.LogLevel = "chatty"
	require.Error(t, Validate(settings))

	// Empty optional fields are filled in.
	settings = Default()
	settings.RootDir = ""
	settings.URLPath = "PSFree"
	require.NoError(t, Validate(settings))
	require.Equal(t, ".", settings.RootDir)
	require.Equal(t, "/PSFree", settings.URLPath)
}

// TestParsePort covers valid, malformed and out-of-range port arguments.
func TestParsePort(t *testing.T) {
	t.Parallel()

	port, err := ParsePort("8080")
	require.NoError(t, err)
	require.Equal(t, 8080, port)

	for _, bad := range []string{"", "http", "12ab", "0", "65536", "-1"} {
		_, err = ParsePort(bad)
		require.ErrorIs(t, err, errInvalidPort, bad)
	}
}

// TestLoad_MissingFileUsesDefaults ensures the settings file is optional.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.Port = 8080
	settings.RootDir = "/srv/psfree"
	settings.DownloadTimeout = 3 * time.Second
	settings.Exclusions.Dirs = []string{"node_modules"}

	require.NoError(t, Save(path, settings))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

// TestLoad_EnvironmentOverrides verifies PSFREE_HOST_* variables win over the file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.Port = 8080
	require.NoError(t, Save(path, settings))

	t.Setenv("PSFREE_HOST_PORT", "9000")
	t.Setenv("PSFREE_HOST_MANIFEST_FILE", "offline.manifest")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, loaded.Port)
	require.Equal(t, "offline.manifest", loaded.ManifestFile)
}

// TestSave_RejectsInvalid makes sure nothing is written for invalid settings.
func TestSave_RejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	require.Error(t, Save(path, nil))

	settings := Default()
	settings.Port = 70000
	require.Error(t, Save(path, settings))

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
