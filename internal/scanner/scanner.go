// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scanner discovers source files under a root directory and runs the
// signature rules over each of them.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bartekus/docagent/internal/signatures"
)

// Scanner provides access to the source files under a root directory.
type Scanner struct {
	root string
	opts FilterOptions
	log  *slog.Logger

	mu           sync.Mutex
	trackedCache []string
}

// New creates a new Scanner for the given root.
func New(root string, opts FilterOptions, log *slog.Logger) *Scanner {
	return &Scanner{
		root: root,
		opts: opts,
		log:  log,
	}
}

// Root returns the directory the scanner was created for.
func (s *Scanner) Root() string { return s.root }

// Walk lists matching files by walking the filesystem in lexical order.
// Excluded directories are pruned; unreadable directories are logged and skipped.
func (s *Scanner) Walk(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == s.root {
				return err
			}
			s.log.Warn("skipping unreadable path", "path", p, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && s.opts.excludesDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.opts.includes(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}
	return files, nil
}

// TrackedFiles returns all files tracked by git, caching the result for the instance lifetime.
// It respects .gitignore implicitly by asking git.
func (s *Scanner) TrackedFiles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackedCache != nil {
		return s.trackedCache, nil
	}

	// -z avoids quoting of unusual file names
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z")
	cmd.Dir = s.root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}

	if len(out) == 0 {
		s.trackedCache = []string{}
		return s.trackedCache, nil
	}

	files := strings.Split(strings.TrimSuffix(string(out), "\x00"), "\x00")
	s.trackedCache = FilterFiles(files, s.opts)
	if s.trackedCache == nil {
		s.trackedCache = []string{}
	}
	return s.trackedCache, nil
}

// Files returns the files to scan. With trackedOnly it asks git first and falls
// back to walking the tree when that fails.
func (s *Scanner) Files(ctx context.Context, trackedOnly bool) ([]string, error) {
	if trackedOnly {
		files, err := s.TrackedFiles(ctx)
		if err == nil {
			return files, nil
		}
		s.log.Warn("listing tracked files failed, walking the tree instead", "err", err)
	}
	return s.Walk(ctx)
}

// FileResult is the outcome of scanning one file. Err is set when the file
// could not be read or its rules could not be applied; Symbols is then empty.
type FileResult struct {
	Path     string
	Language string
	Symbols  []signatures.Symbol
	Err      error
}

// Scan runs table over files in order. A failing file never stops the scan.
func (s *Scanner) Scan(ctx context.Context, table *signatures.Table, files []string) ([]FileResult, error) {
	results := make([]FileResult, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		lang, ok := table.ForExtension(path.Ext(rel))
		if !ok {
			continue
		}

		s.log.Info("Parsing", "file", rel)
		res := s.ScanFile(lang, rel)
		if res.Err != nil {
			s.log.Warn("Error parsing file", "file", rel, "err", res.Err)
		}
		results = append(results, res)
	}
	return results, nil
}

// ErrRuleFailed wraps a failure raised while applying rules to a file.
var ErrRuleFailed = errors.New("applying rules failed")

// ScanFile reads one file (relative to the root) and extracts its symbols.
func (s *Scanner) ScanFile(lang *signatures.Language, rel string) (res FileResult) {
	res = FileResult{Path: rel, Language: lang.Name}

	raw, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel))) //nolint:gosec // path from directory walk
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", rel, err)
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Symbols = nil
			res.Err = fmt.Errorf("%w for %s: %v", ErrRuleFailed, rel, r)
		}
	}()
	res.Symbols = signatures.Extract(lang, rel, signatures.Decode(raw))
	return res
}

// Symbols flattens the symbols of every successful result, preserving order.
func Symbols(results []FileResult) []signatures.Symbol {
	var out []signatures.Symbol
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Symbols...)
		}
	}
	return out
}

// Failed returns the results that carry an error.
func Failed(results []FileResult) []FileResult {
	var out []FileResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
