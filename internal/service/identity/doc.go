// Package identity works out which IPv4 address to advertise in the startup
// banner. Inside a container it resolves the host gateway name; otherwise it
// asks the OS which local address would route to the outside world.
package identity
