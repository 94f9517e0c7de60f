// Package source provides document sources. The core only lists and
// reads; it never implements the store itself.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"docrag/internal/domain"
)

// FSSource reads documents from a directory tree. Locations are paths
// relative to the root, matched against doublestar patterns.
type FSSource struct {
	root     string
	excludes []string
}

// NewFS creates a filesystem source rooted at root.
func NewFS(root string, excludes []string) (*FSSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: source root %s", domain.ErrNotFound, abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: source root %s is not a directory", domain.ErrInvalidInput, abs)
	}
	return &FSSource{root: abs, excludes: excludes}, nil
}

// List resolves patterns to relative locations, sorted and
// de-duplicated. A pattern that matches nothing contributes nothing; it
// is not an error.
func (s *FSSource) List(ctx context.Context, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	seen := make(map[string]bool)
	var locations []string

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if s.matchesAny(s.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if seen[rel] || s.matchesAny(s.excludes, rel) {
			return nil
		}
		if s.matchesAny(patterns, rel) {
			seen[rel] = true
			locations = append(locations, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(locations)
	return locations, nil
}

// Read returns the text at a location.
func (s *FSSource) Read(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(location)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: document %s", domain.ErrNotFound, location)
		}
		return "", err
	}
	return string(data), nil
}

func (s *FSSource) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}
