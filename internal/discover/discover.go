// Package discover finds build scripts in checked-out repositories.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// makefileNames are the file names GNU make looks for, in its lookup order.
var makefileNames = map[string]bool{
	"GNUmakefile": true,
	"makefile":    true,
	"Makefile":    true,
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// Finder locates Makefile directories on disk.
type Finder struct{}

// NewFinder creates a new Finder.
func NewFinder() *Finder {
	return &Finder{}
}

// FindMakefiles returns every directory under root that holds a Makefile,
// relative to root and slash-separated. The root itself is ".".
func (f *Finder) FindMakefiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read repository directory %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %q is not a directory", root)
	}

	seen := make(map[string]bool)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than failing the repository
			if errors.Is(err, fs.ErrPermission) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !makefileNames[d.Name()] {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		seen[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", root, err)
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)
	return dirs, nil
}

// RepoDir returns the checkout directory of a repository under reposDir.
func RepoDir(reposDir, owner, name string) string {
	return filepath.Join(reposDir, owner, name)
}
