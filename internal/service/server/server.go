package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/psfree-host/internal/api/http/host"
	"github.com/oshokin/psfree-host/internal/config"
	"github.com/oshokin/psfree-host/internal/logger"
	"github.com/oshokin/psfree-host/internal/service/identity"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var errUnknownLogLevel = errors.New("unknown log level")

// Options controls the server process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// RootDir overrides the served directory from the settings.
	RootDir string
	// Port overrides the listen port from the settings; zero keeps it.
	Port int
	// LogLevel overrides the log level from the settings.
	LogLevel string
	// ListenAddress overrides the whole host:port listen address.
	ListenAddress string
	// BannerOutput receives the startup banner; defaults to stdout.
	BannerOutput io.Writer
	// Resolver determines the address shown in the banner.
	Resolver *identity.Resolver

	// onListen is called with the bound address once the listener is up.
	onListen func(net.Addr)
}

// Run serves the root directory and blocks until ctx is canceled or the
// server fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "psfree-host")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = net.JoinHostPort(settings.ListenHost, strconv.Itoa(settings.Port))
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	if opts.onListen != nil {
		opts.onListen(listener.Addr())
	}

	// The banner advertises the port actually bound.
	port := settings.Port
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = identity.NewResolver()
	}

	id := resolver.Resolve(ctx)

	bannerOutput := opts.BannerOutput
	if bannerOutput == nil {
		bannerOutput = os.Stdout
	}

	_, _ = fmt.Fprintln(bannerOutput, RenderBanner(id.IP, port, settings.URLPath))

	handler := host.NewHandler(settings.RootDir, NewGenerator(settings), NewUpdater(settings))

	logger.InfoKV(ctx, "HTTP server listening",
		"listen_address", listener.Addr().String(),
		"root_dir", settings.RootDir,
		"url", ListenURL(id.IP, port, settings.URLPath),
	)

	return Serve(ctx, listener, handler)
}

// Serve handles requests from listener one connection at a time until ctx
// is canceled, then shuts the server down gracefully. The listener is closed
// on return.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	// Connections are never reused, so the single slot is released after
	// every response.
	httpServer.SetKeepAlivesEnabled(false)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := httpServer.Serve(netutil.LimitListener(listener, 1))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}

		return nil
	})

	err := group.Wait()
	logger.Info(ctx, "Server stopped")

	return err
}

// loadSettings reads the configuration, lets command-line values win and
// applies the resulting log level.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return nil, err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.SetLevel(level)

	return settings, nil
}

// applyOverrides copies non-empty command-line values onto settings.
func applyOverrides(settings *config.Config, opts *Options) error {
	if opts.RootDir != "" {
		settings.RootDir = opts.RootDir
	}

	if opts.Port != 0 {
		if err := config.ValidatePort(opts.Port); err != nil {
			return err
		}

		settings.Port = opts.Port
	}

	if opts.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(opts.LogLevel); !ok {
			return fmt.Errorf("%q: %w", opts.LogLevel, errUnknownLogLevel)
		}

		settings.LogLevel = opts.LogLevel
	}

	return nil
}
