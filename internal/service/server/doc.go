// Package server runs the exploit host: it loads the settings, prints the
// startup banner and serves HTTP until the context is canceled.
package server
