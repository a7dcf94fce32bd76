// Package manifest writes the application-cache manifest that lists every
// cacheable file under the served root.
//
// The generator walks the tree top-down, emitting a directory's files before
// descending into its subdirectories, and skips anything the exclusion
// Policy rules out. Paths are written relative to the root with forward
// slashes, followed by a NETWORK section that allows everything else.
package manifest
