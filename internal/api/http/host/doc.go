// Package host implements the HTTP surface of the exploit host.
//
// Two POST endpoints trigger maintenance actions (manifest regeneration and
// asset refresh); every GET or HEAD request is answered from the served root
// directory. Requests are handled strictly one at a time.
package host
