package identity

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/psfree-host/internal/logger"
)

const (
	// DefaultMarkerFile is created by Docker in the root of every container.
	DefaultMarkerFile = "/.dockerenv"
	// DefaultCgroupFile lists the control groups of the init process.
	DefaultCgroupFile = "/proc/1/cgroup"
	// DefaultGatewayHost resolves to the host machine from inside Docker.
	DefaultGatewayHost = "host.docker.internal"
	// DefaultProbeAddress only has to be routable; nothing is sent to it.
	DefaultProbeAddress = "8.8.8.8:80"

	// UnknownHostIP is reported when the gateway name does not resolve.
	UnknownHostIP = "Could not determine host IP"
	// LoopbackIP is reported when no outbound route could be picked.
	LoopbackIP = "127.0.0.1"
)

var errNoIPv4 = errors.New("no IPv4 address")

// Identity is the outcome of a resolution.
type Identity struct {
	// IP is the address to print; it may be UnknownHostIP.
	IP string
	// Containerized tells which branch produced IP.
	Containerized bool
}

// Resolver detects the runtime environment and picks a display address.
type Resolver struct {
	markerFile   string
	cgroupFile   string
	cgroupTokens []string
	gatewayHost  string
	probeAddress string

	lookupIP func(ctx context.Context, network, host string) ([]net.IP, error)
	dial     func(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMarkerFile overrides the container marker file path.
func WithMarkerFile(path string) Option {
	return func(r *Resolver) {
		r.markerFile = path
	}
}

// WithCgroupFile overrides the control-group metadata file path.
func WithCgroupFile(path string) Option {
	return func(r *Resolver) {
		r.cgroupFile = path
	}
}

// WithGatewayHost overrides the host name resolved inside containers.
func WithGatewayHost(host string) Option {
	return func(r *Resolver) {
		r.gatewayHost = host
	}
}

// WithProbeAddress overrides the address used to pick the outbound route.
func WithProbeAddress(address string) Option {
	return func(r *Resolver) {
		r.probeAddress = address
	}
}

// WithLookupIP replaces the DNS lookup function.
func WithLookupIP(fn func(ctx context.Context, network, host string) ([]net.IP, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookupIP = fn
		}
	}
}

// WithDialer replaces the function used to open the probe socket.
func WithDialer(fn func(ctx context.Context, network, address string) (net.Conn, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.dial = fn
		}
	}
}

// NewResolver returns a Resolver using the well-known Docker locations.
func NewResolver(opts ...Option) *Resolver {
	dialer := new(net.Dialer)

	r := &Resolver{
		markerFile:   DefaultMarkerFile,
		cgroupFile:   DefaultCgroupFile,
		cgroupTokens: []string{"docker", "kubepods"},
		gatewayHost:  DefaultGatewayHost,
		probeAddress: DefaultProbeAddress,
		lookupIP:     net.DefaultResolver.LookupIP,
		dial:         dialer.DialContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve never fails: every problem degrades to a fallback string.
func (r *Resolver) Resolve(ctx context.Context) Identity {
	ctx = logger.WithName(ctx, "identity")

	if r.IsContainerized() {
		ip := r.hostIP(ctx)
		logger.Infof(ctx, "Running inside Docker. Host IPv4: %s", ip)

		return Identity{IP: ip, Containerized: true}
	}

	ip := r.machineIP(ctx)
	logger.Infof(ctx, "Not in Docker. Machine IPv4: %s", ip)

	return Identity{IP: ip}
}

// IsContainerized reports whether the marker file exists or the cgroup
// metadata mentions a container runtime. Read failures mean "no".
func (r *Resolver) IsContainerized() bool {
	if r.markerFile != "" {
		if _, err := os.Stat(r.markerFile); err == nil {
			return true
		}
	}

	if r.cgroupFile == "" {
		return false
	}

	contents, err := os.ReadFile(filepath.Clean(r.cgroupFile))
	if err != nil {
		return false
	}

	for _, token := range r.cgroupTokens {
		if strings.Contains(string(contents), token) {
			return true
		}
	}

	return false
}

// hostIP resolves the gateway host name to its first IPv4 address.
func (r *Resolver) hostIP(ctx context.Context) string {
	ips, err := r.lookupIP(ctx, "ip4", r.gatewayHost)
	if err == nil {
		if ip := firstIPv4(ips); ip != nil {
			return ip.String()
		}

		err = errNoIPv4
	}

	logger.DebugKV(ctx, "Gateway lookup failed", "host", r.gatewayHost, "error", err)

	return UnknownHostIP
}

// machineIP reads the local end of a connected UDP socket. Connecting a
// datagram socket only selects a route, so the probe address never sees traffic.
func (r *Resolver) machineIP(ctx context.Context) string {
	conn, err := r.dial(ctx, "udp4", r.probeAddress)
	if err != nil {
		logger.DebugKV(ctx, "Route probe failed", "address", r.probeAddress, "error", err)
		return LoopbackIP
	}

	defer func() {
		_ = conn.Close()
	}()

	var ip net.IP

	switch addr := conn.LocalAddr().(type) {
	case *net.UDPAddr:
		ip = addr.IP
	case *net.TCPAddr:
		ip = addr.IP
	}

	if ip = ip.To4(); ip == nil || ip.IsUnspecified() {
		return LoopbackIP
	}

	return ip.String()
}

func firstIPv4(ips []net.IP) net.IP {
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}

	return nil
}
