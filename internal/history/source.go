// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Docagent - Docagent scans a source tree for code symbols, reads recent version-control history and emits documentation artifacts.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package history reads recent commits from version control.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ShortHashLen is the number of hash characters kept in a Commit.
const ShortHashLen = 7

// ErrNotRepository is returned when the directory is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// Commit is one history entry. The JSON field names are the ones written to
// release_notes.json.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// Source provides commit history, newest first.
type Source interface {
	Commits(ctx context.Context) ([]Commit, error)
}

// Backend names accepted by NewSource.
const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// NewSource returns the backend reading up to limit commits from dir.
func NewSource(backend, dir string, limit int, log *slog.Logger) (Source, error) {
	switch backend {
	case BackendGit, "":
		return &GitLog{Dir: dir, Limit: limit, Log: log}, nil
	case BackendGoGit:
		return &GoGit{Dir: dir, Limit: limit}, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

// Result is the outcome of Read. Commits is never nil; Err explains why it is
// empty when the backend failed.
type Result struct {
	Commits []Commit
	Err     error
}

// Read asks src for its commits. A failing backend is logged as a warning and
// yields an empty list; it never aborts the caller. A zero timeout waits as
// long as the backend takes.
func Read(ctx context.Context, src Source, timeout time.Duration, log *slog.Logger) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	commits, err := src.Commits(ctx)
	if err != nil {
		log.Warn("reading git history failed", "err", err)
		return Result{Commits: []Commit{}, Err: err}
	}
	if commits == nil {
		commits = []Commit{}
	}
	log.Info("Commits found", "count", len(commits))
	return Result{Commits: commits}
}

func shortHash(h string) string {
	if len(h) > ShortHashLen {
		return h[:ShortHashLen]
	}
	return h
}
