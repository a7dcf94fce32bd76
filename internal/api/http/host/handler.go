package host

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/psfree-host/internal/logger"
	"github.com/oshokin/psfree-host/internal/service/manifest"
	"github.com/oshokin/psfree-host/internal/service/updater"
)

const (
	// GenerateManifestPath triggers manifest regeneration.
	GenerateManifestPath = "/generate_manifest"
	// UpdateExploitPath triggers the asset refresh.
	UpdateExploitPath = "/update_exploit"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	manifestCreatedSuffix = " created successfully.\nThe cache has been updated, Please refresh the page."
	localOnlySuffix       = "\nThis option only works on local server!\nPlease make sure your server is up."
)

// ManifestGenerator regenerates the cache manifest under a root directory.
type ManifestGenerator interface {
	Generate(ctx context.Context, rootDir string) (*manifest.Result, error)
	OutputFile() string
}

// AssetUpdater refreshes the bundled assets under a root directory.
type AssetUpdater interface {
	Run(ctx context.Context, rootDir string) []updater.Result
}

// StatusResponse is the body of POST /generate_manifest.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateResponse is the body of POST /update_exploit.
type UpdateResponse struct {
	Results []string `json:"results"`
}

// Handler dispatches requests to the maintenance actions or the file server.
type Handler struct {
	// rootDir is the served directory and the target of both actions.
	rootDir string
	// generator backs POST /generate_manifest.
	generator ManifestGenerator
	// updater backs POST /update_exploit.
	updater AssetUpdater
	// files serves GET and HEAD requests.
	files http.Handler
	// mu serializes request handling.
	mu sync.Mutex
}

// NewHandler wires the actions and the file server for rootDir.
func NewHandler(rootDir string, generator ManifestGenerator, assetUpdater AssetUpdater) *Handler {
	return &Handler{
		rootDir:   rootDir,
		generator: generator,
		updater:   assetUpdater,
		files:     http.FileServer(http.Dir(rootDir)),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := logger.WithKV(r.Context(), "request_id", uuid.NewString())
	logger.DebugKV(ctx, "Request received",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	switch r.Method {
	case http.MethodPost:
		h.servePost(ctx, w, r)
	case http.MethodGet, http.MethodHead:
		h.files.ServeHTTP(w, r.WithContext(ctx))
	default:
		logger.WarnKV(ctx, "Unsupported method", "method", r.Method, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
	}
}

func (h *Handler) servePost(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case GenerateManifestPath:
		h.generateManifest(ctx, w)
	case UpdateExploitPath:
		h.updateExploit(ctx, w)
	default:
		logger.InfoKV(ctx, "Unknown action", "path", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(http.StatusText(http.StatusNotFound)))
	}
}

func (h *Handler) generateManifest(ctx context.Context, w http.ResponseWriter) {
	result, err := h.generator.Generate(ctx, h.rootDir)
	if err != nil {
		logger.ErrorKV(ctx, "Manifest generation failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, StatusResponse{
			Status:  statusError,
			Message: err.Error() + localOnlySuffix,
		})

		return
	}

	logger.InfoKV(ctx, "Manifest generated", "path", result.Path, "entries", result.Entries)
	writeJSON(ctx, w, http.StatusOK, StatusResponse{
		Status:  statusSuccess,
		Message: h.generator.OutputFile() + manifestCreatedSuffix,
	})
}

func (h *Handler) updateExploit(ctx context.Context, w http.ResponseWriter) {
	results := h.updater.Run(ctx, h.rootDir)

	lines := make([]string, 0, len(results))
	failed := 0

	for _, result := range results {
		if result.Failed() {
			failed++
		}

		lines = append(lines, result.String())
	}

	logger.InfoKV(ctx, "Asset update finished", "total", len(results), "failed", failed)
	writeJSON(ctx, w, http.StatusOK, UpdateResponse{Results: lines})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
