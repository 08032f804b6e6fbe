// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// isoDate is the layout git uses for --date=iso.
const isoDate = "2006-01-02 15:04:05 -0700"

// GoGit reads history in-process, without a git executable.
// Its records match what GitLog produces for the same repository.
type GoGit struct {
	Dir   string
	Limit int
}

// Commits walks the log from HEAD, newest commit first.
func (g *GoGit) Commits(ctx context.Context) ([]Commit, error) {
	repo, err := gogit.PlainOpenWithOptions(g.Dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}

	iter, err := repo.Log(&gogit.LogOptions{Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(commits) >= g.Limit {
			return storer.ErrStop
		}
		commits = append(commits, Commit{
			Hash:    shortHash(c.Hash.String()),
			Author:  c.Author.Name,
			Date:    c.Author.When.Format(isoDate),
			Message: subject(c.Message),
		})
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("walking log: %w", err)
	}
	return commits, nil
}

// subject mirrors git's %s: the first paragraph with line breaks folded to spaces.
func subject(msg string) string {
	msg = strings.TrimLeft(strings.ReplaceAll(msg, "\r\n", "\n"), "\n")
	if i := strings.Index(msg, "\n\n"); i >= 0 {
		msg = msg[:i]
	}
	lines := strings.Split(strings.TrimSpace(msg), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " ")
}
