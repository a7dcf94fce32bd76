package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/psfree-host/internal/logger"
	"github.com/oshokin/psfree-host/internal/version"
)

const (
	// DefaultFileMode is applied to installed assets.
	DefaultFileMode os.FileMode = 0o644

	// defaultDirMode is used for intermediate directories.
	defaultDirMode os.FileMode = 0o755
)

var (
	errInvalidPath   = errors.New("invalid path")
	errBadHTTPStatus = errors.New("unexpected http status")
	errNotUTF8       = errors.New("script is not valid UTF-8")
)

// Status is the outcome of one table entry.
type Status string

const (
	// StatusUpdated means the asset was downloaded and written.
	StatusUpdated Status = "updated"
	// StatusDownloadFailed means the remote resource could not be fetched.
	StatusDownloadFailed Status = "download failed"
	// StatusError covers path, decode and write problems.
	StatusError Status = "error"
)

// Result reports what happened to a single asset.
type Result struct {
	// Path is the asset path as listed in the table.
	Path string
	// Status is the outcome category.
	Status Status
	// Detail carries the underlying error text for failures.
	Detail string
}

// String renders the result as reported to HTTP clients, e.g. "psfree/send.mjs: updated".
func (r Result) String() string {
	if r.Status == StatusUpdated {
		return r.Path + ": " + string(r.Status)
	}

	return fmt.Sprintf("%s: %s (%s)", r.Path, r.Status, r.Detail)
}

// Failed reports whether the entry was not installed.
func (r Result) Failed() bool {
	return r.Status != StatusUpdated
}

// Updater downloads, patches and installs a fixed table of assets.
type Updater struct {
	// assets is the ordered table processed on every run.
	assets []Asset
	// rules is the ordered patch set for script assets.
	rules []Rule
	// httpClient performs the downloads.
	httpClient *http.Client
	// fileMode is applied to written assets.
	fileMode os.FileMode
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		if c != nil {
			u.httpClient = c
		}
	}
}

// WithRules replaces the patch rules applied to script assets.
func WithRules(rules []Rule) Option {
	return func(u *Updater) {
		u.rules = append([]Rule(nil), rules...)
	}
}

// New creates an Updater for the given table. The table is copied.
func New(assets []Asset, opts ...Option) *Updater {
	u := &Updater{
		assets:     append([]Asset(nil), assets...),
		rules:      DefaultRules(),
		httpClient: http.DefaultClient,
		fileMode:   DefaultFileMode,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Assets returns a copy of the table.
func (u *Updater) Assets() []Asset {
	return append([]Asset(nil), u.assets...)
}

// Run processes every asset in table order and returns one result per entry.
// Failures never stop the run.
func (u *Updater) Run(ctx context.Context, rootDir string) []Result {
	ctx = logger.WithName(ctx, "updater")

	results := make([]Result, 0, len(u.assets))

	root, err := filepath.Abs(rootDir)
	if err != nil {
		for _, asset := range u.assets {
			results = append(results, failure(asset, StatusError, err))
		}

		return results
	}

	for _, asset := range u.assets {
		result := u.updateAsset(ctx, root, asset)
		if result.Failed() {
			logger.WarnKV(ctx, "Asset not updated", "path", asset.Path, "status", result.Status, "detail", result.Detail)
		} else {
			logger.InfoKV(ctx, "Asset updated", "path", asset.Path)
		}

		results = append(results, result)
	}

	return results
}

// updateAsset resolves, downloads, patches and installs one asset.
func (u *Updater) updateAsset(ctx context.Context, root string, asset Asset) Result {
	target, err := resolveTarget(root, asset.Path)
	if err != nil {
		return failure(asset, StatusError, err)
	}

	data, err := u.download(ctx, asset.URL)
	if err != nil {
		return failure(asset, StatusDownloadFailed, err)
	}

	if asset.IsScript() {
		if data, err = u.patch(data); err != nil {
			return failure(asset, StatusError, err)
		}
	}

	if err = u.install(target, data); err != nil {
		return failure(asset, StatusError, err)
	}

	return Result{Path: asset.Path, Status: StatusUpdated}
}

// resolveTarget joins rel onto root and refuses anything that escapes it.
func resolveTarget(root, rel string) (string, error) {
	target := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))

	inside, err := filepath.Rel(root, target)
	if err != nil || inside == "." || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w %s", errInvalidPath, rel)
	}

	return target, nil
}

// download fetches url in a single blocking GET.
func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	return io.ReadAll(response.Body)
}

// patch decodes a script as UTF-8 and applies the rule set.
func (u *Updater) patch(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, errNotUTF8
	}

	text, err := ApplyRules(string(data), u.rules)
	if err != nil {
		return nil, err
	}

	return []byte(text), nil
}

// install overwrites target with data via go-update, which needs an
// existing target to swap out.
func (u *Updater) install(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, u.fileMode)
		if err != nil {
			return err
		}

		if err = placeholder.Close(); err != nil {
			return err
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: u.fileMode,
	}

	return goupdate.Apply(bytes.NewReader(data), options)
}

func failure(asset Asset, status Status, err error) Result {
	return Result{
		Path:   asset.Path,
		Status: status,
		Detail: err.Error(),
	}
}
