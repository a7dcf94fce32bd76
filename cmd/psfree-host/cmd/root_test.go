package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/psfree-host/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		forceOverwrite = false
	})

	err := rootCmd.Execute()

	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psfree-host.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "Configuration written to "+path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.Default(), loaded)

	_, err = execute(t, "config", "init", "--config", path)
	require.ErrorIs(t, err, errConfigExists)

	_, err = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestRootRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	for _, port := range []string{"http", "0", "65536"} {
		_, err := execute(t, "--config", path, port)
		require.Error(t, err, port)
	}

	_, err := execute(t, "--config", path, "1", "2")
	require.Error(t, err)
}
