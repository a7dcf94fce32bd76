package manifest

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/psfree-host/internal/logger"
)

// TimestampLayout formats the generation time written in the header.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Generator writes the manifest for a root directory.
type Generator struct {
	// policy decides which entries are left out.
	policy Policy
	// outputFile is the manifest's bare file name inside the root.
	outputFile string
	// now supplies the header timestamp.
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for the header timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Result describes a written manifest.
type Result struct {
	// Path is the manifest location on disk.
	Path string
	// Entries is the number of paths listed in the CACHE section.
	Entries int
}

// entryKind classifies a directory entry the way a non-following walk sees it.
type entryKind int

const (
	kindFile entryKind = iota
	kindDir
	kindLinkedDir
)

// NewGenerator creates a generator writing outputFile with the given policy.
func NewGenerator(policy Policy, outputFile string, opts ...Option) *Generator {
	g := &Generator{
		policy:     policy,
		outputFile: outputFile,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// OutputFile returns the manifest file name.
func (g *Generator) OutputFile() string {
	return g.outputFile
}

// Generate (re)creates rootDir/OutputFile. The output is opened before the
// walk, so a root that cannot be written fails fast; content written before
// a later failure is left as is.
func (g *Generator) Generate(ctx context.Context, rootDir string) (*Result, error) {
	ctx = logger.WithName(ctx, "manifest")

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootDir, err)
	}

	manifestPath := filepath.Join(root, g.outputFile)

	file, err := os.Create(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "CACHE MANIFEST\n# v1\n# Generated on %s\n\nCACHE:\n", g.now().Format(TimestampLayout))

	entries := 0
	emit := func(rel string) error {
		entries++

		_, err := fmt.Fprintln(w, rel)

		return err
	}

	if err = g.walk(ctx, root, root, emit); err != nil {
		_ = w.Flush()

		return nil, err
	}

	fmt.Fprint(w, "\nNETWORK:\n*\n")

	if err = w.Flush(); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err = file.Close(); err != nil {
		return nil, fmt.Errorf("close manifest: %w", err)
	}

	logger.InfoKV(ctx, "Manifest generated", "path", manifestPath, "entries", entries)

	return &Result{
		Path:    manifestPath,
		Entries: entries,
	}, nil
}

// walk lists dir's files, then recurses into its subdirectories that the
// policy keeps. Only a failure to read the root itself is fatal.
func (g *Generator) walk(ctx context.Context, root, dir string, emit func(string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == root {
			return fmt.Errorf("read root directory: %w", err)
		}

		logger.WarnKV(ctx, "Skipping unreadable directory", "path", dir, "error", err)

		return nil
	}

	var subdirs []string

	for _, entry := range entries {
		name := entry.Name()
		fullPath := filepath.Join(dir, name)

		switch classify(entry, fullPath) {
		case kindDir:
			if !g.policy.ExcludesDir(name) {
				subdirs = append(subdirs, fullPath)
			}

			continue
		case kindLinkedDir:
			continue
		case kindFile:
		}

		if g.policy.ExcludesFile(name) || name == g.outputFile {
			continue
		}

		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", fullPath, err)
		}

		if err = emit(filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	for _, subdir := range subdirs {
		if err := g.walk(ctx, root, subdir, emit); err != nil {
			return err
		}
	}

	return nil
}

// classify treats symlinks to directories as directories that are never entered.
func classify(entry fs.DirEntry, fullPath string) entryKind {
	if entry.IsDir() {
		return kindDir
	}

	if entry.Type()&fs.ModeSymlink == 0 {
		return kindFile
	}

	info, err := os.Stat(fullPath)
	if err == nil && info.IsDir() {
		return kindLinkedDir
	}

	return kindFile
}
