package manifest

import (
	"path/filepath"
	"strings"
)

// Policy decides which directories and files stay out of the manifest.
// It is immutable once built.
type Policy struct {
	dirs       map[string]struct{}
	extensions map[string]struct{}
	files      map[string]struct{}
}

// NewPolicy builds a Policy. Extensions are matched case-insensitively and
// must include the leading dot; directory and file names match exactly.
func NewPolicy(dirs, extensions, files []string) Policy {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, strings.ToLower(ext))
	}

	return Policy{
		dirs:       sliceToSet(dirs),
		extensions: sliceToSet(normalized),
		files:      sliceToSet(files),
	}
}

// ExcludesDir reports whether the subtree under a directory with this name is skipped.
func (p Policy) ExcludesDir(name string) bool {
	_, found := p.dirs[name]

	return found
}

// ExcludesFile reports whether a file with this bare name is skipped because
// of its extension or its exact name.
func (p Policy) ExcludesFile(name string) bool {
	if _, found := p.files[name]; found {
		return true
	}

	_, found := p.extensions[Extension(name)]

	return found
}

// Extension returns the lower-cased extension of a bare file name, dot
// included. Leading dots do not start an extension, so ".gitignore" has none.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimLeft(name, ".")))
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}
