package integration

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/psfree-host/internal/api/http/host"
	"github.com/oshokin/psfree-host/internal/config"
	"github.com/oshokin/psfree-host/internal/service/server"
	"github.com/oshokin/psfree-host/internal/service/updater"
)

// startHost serves root on an ephemeral port and returns its base URL.
// The server is stopped when the test ends.
func startHost(t *testing.T, root string, assets []updater.Asset) string {
	t.Helper()

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := host.NewHandler(root,
		server.NewGenerator(config.Default()),
		updater.New(assets),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Serve(ctx, listener, handler)
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return "http://" + listener.Addr().String()
}

func newClient() *http.Client {
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
}

func do(t *testing.T, method, url string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, http.NoBody)
	require.NoError(t, err)

	response, err := newClient().Do(req)
	require.NoError(t, err)

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response.StatusCode, body
}

// fetchStatus is safe to call from helper goroutines; failures yield status 0.
func fetchStatus(method, url string) int {
	req, err := http.NewRequestWithContext(context.Background(), method, url, http.NoBody)
	if err != nil {
		return 0
	}

	response, err := newClient().Do(req)
	if err != nil {
		return 0
	}

	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()

	return response.StatusCode
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// TestManifestRoundTrip regenerates the manifest over HTTP and downloads it.
func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")
	writeFile(t, root, "psfree/lapse.mjs", "export {};")
	writeFile(t, root, "psfree/notes.txt", "excluded")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, root, "LICENSE", "excluded")

	baseURL := startHost(t, root, nil)

	status, body := do(t, http.MethodPost, baseURL+host.GenerateManifestPath)
	require.Equal(t, http.StatusOK, status)

	var response host.StatusResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, "success", response.Status)

	status, body = do(t, http.MethodGet, baseURL+"/"+config.DefaultManifestFilename)
	require.Equal(t, http.StatusOK, status)

	text := string(body)
	require.True(t, strings.HasPrefix(text, "CACHE MANIFEST\n# v1\n# Generated on "))
	require.Contains(t, text, "\nCACHE:\nindex.html\npsfree/lapse.mjs\n")
	require.True(t, strings.HasSuffix(text, "\nNETWORK:\n*\n"))

	for _, excluded := range []string{"notes.txt", ".git", "LICENSE"} {
		require.NotContains(t, text, excluded)
	}
}

// TestUpdateRoundTrip refreshes assets from a fake upstream and serves the patched result.
func TestUpdateRoundTrip(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lapse.mjs" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte("import * as rop from './rop/900.mjs';\n" +
			"alert(\"kernel exploit succeeded!\");\nalert(\"done\");\n"))
	}))
	t.Cleanup(upstream.Close)

	root := t.TempDir()
	baseURL := startHost(t, root, []updater.Asset{
		{Path: "psfree/lapse.mjs", URL: upstream.URL + "/lapse.mjs"},
		{Path: "psfree/gone.mjs", URL: upstream.URL + "/gone.mjs"},
	})

	status, body := do(t, http.MethodPost, baseURL+host.UpdateExploitPath)
	require.Equal(t, http.StatusOK, status)

	var response host.UpdateResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Results, 2)
	require.Equal(t, "psfree/lapse.mjs: updated", response.Results[0])
	require.True(t, strings.HasPrefix(response.Results[1], "psfree/gone.mjs: download failed ("))

	status, body = do(t, http.MethodGet, baseURL+"/psfree/lapse.mjs")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "import * as rop from '../rop/900.mjs';\n"+
		"//alert(\"kernel exploit succeeded!\");\nalert(\"done\");\n", string(body))

	status, _ = do(t, http.MethodGet, baseURL+"/psfree/gone.mjs")
	require.Equal(t, http.StatusNotFound, status)
}

// TestRequestsAreSerialized keeps a GET waiting while an update is in progress.
func TestRequestsAreSerialized(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte("payload"))
	}))
	t.Cleanup(upstream.Close)

	root := t.TempDir()
	writeFile(t, root, "index.html", "page")

	baseURL := startHost(t, root, []updater.Asset{{Path: "psfree/blob.bin", URL: upstream.URL}})

	updateDone := make(chan int, 1)

	go func() {
		updateDone <- fetchStatus(http.MethodPost, baseURL+host.UpdateExploitPath)
	}()

	<-started

	getDone := make(chan int, 1)

	go func() {
		getDone <- fetchStatus(http.MethodGet, baseURL+"/index.html")
	}()

	select {
	case <-getDone:
		t.Fatal("GET was served while an update was running")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	require.Equal(t, http.StatusOK, <-updateDone)
	require.Equal(t, http.StatusOK, <-getDone)
}

// TestUnknownActions covers the non-static error paths end to end.
func TestUnknownActions(t *testing.T) {
	t.Parallel()

	baseURL := startHost(t, t.TempDir(), nil)

	status, body := do(t, http.MethodPost, baseURL+"/reboot")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Not Found", string(body))

	status, _ = do(t, http.MethodGet, baseURL+host.GenerateManifestPath)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodPut, baseURL+"/index.html")
	require.Equal(t, http.StatusNotImplemented, status)
}

// TestManifestUnwritableRoot reports the filesystem error with a 500.
func TestManifestUnwritableRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "removed")
	baseURL := startHost(t, root, nil)

	status, body := do(t, http.MethodPost, baseURL+host.GenerateManifestPath)
	require.Equal(t, http.StatusInternalServerError, status)

	var response host.StatusResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, "error", response.Status)
	require.Contains(t, response.Message, config.DefaultManifestFilename)
	require.True(t, strings.HasSuffix(response.Message,
		"\nThis option only works on local server!\nPlease make sure your server is up."))

	_, err := os.Stat(root)
	require.ErrorIs(t, err, os.ErrNotExist)
}
