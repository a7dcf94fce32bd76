// Package version exposes build metadata injected through -ldflags
// and a cobra `version` subcommand that prints it.
package version
