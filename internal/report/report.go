// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Docagent - Docagent scans a source tree for code symbols, reads recent version-control history and emits documentation artifacts.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package report renders symbols and commits into the three documentation
// artifacts: the XML symbol index, the Markdown changelog and the JSON
// release-notes bundle.
package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/bartekus/docagent/internal/history"
	"github.com/bartekus/docagent/internal/projection"
	"github.com/bartekus/docagent/internal/signatures"
)

// Artifact file names inside the output directory.
const (
	SymbolIndexFile  = "TDD.xml"
	ChangelogFile    = "CHANGELOG.md"
	ReleaseNotesFile = "release_notes.json"
)

// TimestampLayout formats generation times. Times are converted to UTC first.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SymbolIndex renders the XML index, one <api> element per symbol in input order.
//
// Attribute values are inserted as-is unless escape is set, so a name or path
// containing <, >, & or " yields a document XML parsers will reject.
func SymbolIndex(symbols []signatures.Symbol, escape bool) string {
	attr := func(s string) string { return s }
	if escape {
		attr = escapeAttr
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<TDD>\n")
	for _, s := range symbols {
		fmt.Fprintf(&b, "  <api file=\"%s\" type=\"%s\" name=\"%s\" language=\"%s\" />\n",
			attr(s.File), attr(s.Kind), attr(s.Name), attr(s.Language))
	}
	b.WriteString("</TDD>\n")
	return b.String()
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Changelog renders the Markdown changelog with one bullet per commit in input order.
func Changelog(commits []history.Commit, generatedAt string) string {
	items := make([]string, 0, len(commits))
	for _, c := range commits {
		items = append(items, fmt.Sprintf("[%s] %s - %s (by %s)", c.Hash, c.Date, c.Message, c.Author))
	}

	var b strings.Builder
	b.WriteString(projection.RenderHeading(1, "Changelog"))
	b.WriteString("Generated: " + generatedAt + "\n\n")
	b.WriteString(projection.RenderHeading(2, "Recent Changes"))
	b.WriteString("\n")
	b.WriteString(projection.RenderList(items))
	return b.String()
}

// Bundle is the release-notes document. Field order is the key order on disk.
type Bundle struct {
	GeneratedAt     string              `json:"generated_at"`
	Version         string              `json:"version"`
	SignaturesFound int                 `json:"signatures_found"`
	CommitsAnalyzed int                 `json:"commits_analyzed"`
	APIChanges      []signatures.Symbol `json:"api_changes"`
	RecentCommits   []history.Commit    `json:"recent_commits"`
}

// NewBundle builds a Bundle whose counts always match its lists.
func NewBundle(symbols []signatures.Symbol, commits []history.Commit, generatedAt, version string) Bundle {
	if symbols == nil {
		symbols = []signatures.Symbol{}
	}
	if commits == nil {
		commits = []history.Commit{}
	}
	return Bundle{
		GeneratedAt:     generatedAt,
		Version:         version,
		SignaturesFound: len(symbols),
		CommitsAnalyzed: len(commits),
		APIChanges:      symbols,
		RecentCommits:   commits,
	}
}

// ReleaseNotes renders b as indented JSON terminated by a newline.
func ReleaseNotes(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encoding release notes: %w", err)
	}
	return buf.Bytes(), nil
}
