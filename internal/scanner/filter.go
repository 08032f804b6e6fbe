// SPDX-License-Identifier: AGPL-3.0-or-later

package scanner

import (
	"path"
	"sort"
	"strings"
)

// FilterOptions defines criteria for including or excluding files.
// All paths are relative to the scan root and slash-separated.
type FilterOptions struct {
	// ExcludeDirs is a list of directory names to exclude.
	// Matching is segment-aware: ".git" excludes ".git/HEAD" and "sub/.git/config",
	// but not ".github/workflows/ci.yml".
	ExcludeDirs []string

	// ExcludePaths is a list of relative directories excluded with everything below them.
	ExcludePaths []string

	// IncludeExtensions is a list of extensions to include (e.g., ".py").
	// If empty, all extensions are included.
	IncludeExtensions []string
}

// DefaultExcludeDirs returns the version-control metadata directories never scanned.
func DefaultExcludeDirs() []string {
	return []string{".git"}
}

// FilterFiles applies the filter options to a list of file paths.
// It returns a new slice of strings, sorted deterministically.
func FilterFiles(paths []string, opts FilterOptions) []string {
	if len(paths) == 0 {
		return nil
	}

	var filtered []string
	for _, p := range paths {
		if opts.excludesDir(path.Dir(p)) {
			continue
		}
		if !opts.includes(p) {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.Strings(filtered)
	return filtered
}

// excludesDir reports whether dir, or any directory above it, is excluded.
func (o FilterOptions) excludesDir(dir string) bool {
	if dir == "." || dir == "" {
		return false
	}
	for _, part := range strings.Split(dir, "/") {
		for _, exclude := range o.ExcludeDirs {
			if part == exclude {
				return true
			}
		}
	}
	for _, prefix := range o.ExcludePaths {
		prefix = strings.TrimSuffix(path.Clean(prefix), "/")
		if dir == prefix || strings.HasPrefix(dir, prefix+"/") {
			return true
		}
	}
	return false
}

// includes reports whether p carries one of the included extensions.
func (o FilterOptions) includes(p string) bool {
	if len(o.IncludeExtensions) == 0 {
		return true
	}
	ext := path.Ext(p)
	for _, want := range o.IncludeExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
