package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/psfree-host/internal/logger"
)

// Config holds the settings shared by the server and the one-shot commands.
type Config struct {
	// RootDir is the directory that is served, listed in the manifest and updated.
	RootDir string `yaml:"root_dir" mapstructure:"root_dir"`
	// ListenHost is the interface the HTTP server binds to.
	ListenHost string `yaml:"listen_host" mapstructure:"listen_host"`
	// Port is the TCP port the HTTP server listens on.
	Port int `yaml:"port" mapstructure:"port"`
	// URLPath is appended to the address printed in the startup banner.
	URLPath string `yaml:"url_path" mapstructure:"url_path"`
	// ManifestFile is the name of the manifest written into RootDir.
	ManifestFile string `yaml:"manifest_file" mapstructure:"manifest_file"`
	// DownloadTimeout bounds each asset download; zero keeps the transport default.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Exclusions lists what the manifest generator leaves out.
	Exclusions Exclusions `yaml:"exclusions" mapstructure:"exclusions"`
}

// Exclusions is the serialized form of the manifest exclusion policy.
type Exclusions struct {
	// Dirs are directory names whose whole subtree is skipped.
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
	// Extensions are file extensions (with the leading dot) that are skipped.
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	// Files are exact file names that are skipped.
	Files []string `yaml:"files" mapstructure:"files"`
}

const (
	// DefaultConfigFilename is the settings file looked up when none is given.
	DefaultConfigFilename = "psfree-host.yaml"

	// DefaultPort is the port used when neither config nor CLI provide one.
	DefaultPort = 52721

	// DefaultManifestFilename is the manifest written into the root directory.
	DefaultManifestFilename = "PSFree.manifest"

	// DefaultURLPath is the page path advertised in the startup banner.
	DefaultURLPath = "/PSFree"

	// DefaultFilePermissions is used when saving the settings file.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes environment overrides, e.g. PSFREE_HOST_PORT.
	EnvPrefix = "PSFREE_HOST"

	maxPort = 65535
)

var (
	errConfigIsNotSet       = errors.New("configuration is not set")
	errInvalidPort          = errors.New("port must be an integer between 1 and 65535")
	errManifestFileRequired = errors.New("manifest file name must be provided")
	errManifestFileIsPath   = errors.New("manifest file name must not contain path separators")
	errNegativeTimeout      = errors.New("download timeout must not be negative")
	errUnknownLogLevel      = errors.New("unknown log level")
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		RootDir:      ".",
		ListenHost:   "0.0.0.0",
		Port:         DefaultPort,
		URLPath:      DefaultURLPath,
		ManifestFile: DefaultManifestFilename,
		LogLevel:     "info",
		Exclusions: Exclusions{
			Dirs: []string{".venv", ".git", "noneed"},
			Extensions: []string{
				".bat", ".txt", ".exe", ".mp4", ".py", ".bak", ".zip",
				".mp3", ".sh", ".h", ".c", ".o", ".ld", ".md", ".d",
			},
			Files: []string{".gitignore", "COPYING", "LICENSE", "MAKEFILE", "dockerfile"},
		},
	}
}

// Load merges defaults, the YAML file at path (when it exists) and
// PSFREE_HOST_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = filepath.Clean(path)

	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Settings file is optional.
	default:
		return nil, fmt.Errorf("stat settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := ValidatePort(cfg.Port); err != nil {
		return err
	}

	if cfg.ManifestFile == "" {
		return errManifestFileRequired
	}

	if strings.ContainsAny(cfg.ManifestFile, `/\`) || cfg.ManifestFile == "." || cfg.ManifestFile == ".." {
		return fmt.Errorf("%q: %w", cfg.ManifestFile, errManifestFileIsPath)
	}

	if cfg.DownloadTimeout < 0 {
		return errNegativeTimeout
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}

	if cfg.URLPath != "" && !strings.HasPrefix(cfg.URLPath, "/") {
		cfg.URLPath = "/" + cfg.URLPath
	}

	return nil
}

// ParsePort converts a command-line port argument into a validated port number.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errInvalidPort)
	}

	if err := ValidatePort(port); err != nil {
		return 0, err
	}

	return port, nil
}

// ValidatePort reports whether port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > maxPort {
		return fmt.Errorf("%d: %w", port, errInvalidPort)
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root_dir", d.RootDir)
	v.SetDefault("listen_host", d.ListenHost)
	v.SetDefault("port", d.Port)
	v.SetDefault("url_path", d.URLPath)
	v.SetDefault("manifest_file", d.ManifestFile)
	v.SetDefault("download_timeout", d.DownloadTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("exclusions.dirs", d.Exclusions.Dirs)
	v.SetDefault("exclusions.extensions", d.Exclusions.Extensions)
	v.SetDefault("exclusions.files", d.Exclusions.Files)
}
