// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// FieldSeparator sits between hash, author, date and subject in each log line.
const FieldSeparator = "|"

const logFormat = "--pretty=format:%H" + FieldSeparator + "%an" + FieldSeparator + "%ad" + FieldSeparator + "%s"

// GitLog reads history by running `git log` in Dir.
type GitLog struct {
	Dir   string
	Limit int
	// Bin overrides the git executable; empty means "git" from PATH.
	Bin string
	// Log receives a debug record when malformed lines are dropped. Optional.
	Log *slog.Logger
}

// Args returns the git arguments used to list commits.
func (g *GitLog) Args() []string {
	return []string{"log", logFormat, "--date=iso", "-n", strconv.Itoa(g.Limit)}
}

// Commits runs git log and parses its standard output. A missing binary or a
// non-zero exit is returned as an error carrying git's stderr.
func (g *GitLog) Commits(ctx context.Context) ([]Commit, error) {
	bin := g.Bin
	if bin == "" {
		bin = "git"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, g.Args()...)
	cmd.Dir = g.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git log failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	commits, skipped := ParseLog(stdout.String())
	if skipped > 0 && g.Log != nil {
		g.Log.Debug("dropped malformed git log lines", "count", skipped)
	}
	return commits, nil
}

// ParseLog parses `hash|author|date|subject` lines. The subject keeps any
// further separators. Lines with fewer than four fields are dropped and
// counted in skipped; blank lines are ignored.
func ParseLog(out string) (commits []Commit, skipped int) {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, FieldSeparator, 4)
		if len(parts) < 4 {
			skipped++
			continue
		}
		commits = append(commits, Commit{
			Hash:    shortHash(parts[0]),
			Author:  parts[1],
			Date:    parts[2],
			Message: parts[3],
		})
	}
	return commits, skipped
}
