// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bartekus/docagent/internal/history"
	"github.com/bartekus/docagent/internal/projection"
	"github.com/bartekus/docagent/internal/signatures"
)

// Emitter writes the three artifacts into OutDir.
type Emitter struct {
	OutDir    string
	Version   string
	EscapeXML bool
	// Now supplies the generation time; nil means time.Now.
	Now func() time.Time
}

// Artifacts lists the paths written by Emit.
type Artifacts struct {
	SymbolIndex  string
	Changelog    string
	ReleaseNotes string
}

// Emit renders and writes every artifact, replacing older files of the same
// name. Each file is swapped in atomically; the set as a whole is not, so a
// failure part-way leaves earlier artifacts from this run next to older ones.
func (e *Emitter) Emit(symbols []signatures.Symbol, commits []history.Commit) (Artifacts, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	generatedAt := Timestamp(now())

	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating output directory %s: %w", e.OutDir, err)
	}

	notes, err := ReleaseNotes(NewBundle(symbols, commits, generatedAt, e.Version))
	if err != nil {
		return Artifacts{}, err
	}

	out := Artifacts{
		SymbolIndex:  filepath.Join(e.OutDir, SymbolIndexFile),
		Changelog:    filepath.Join(e.OutDir, ChangelogFile),
		ReleaseNotes: filepath.Join(e.OutDir, ReleaseNotesFile),
	}
	writes := []struct {
		path    string
		content []byte
	}{
		{out.SymbolIndex, []byte(SymbolIndex(symbols, e.EscapeXML))},
		{out.Changelog, []byte(Changelog(commits, generatedAt))},
		{out.ReleaseNotes, notes},
	}
	for _, w := range writes {
		if err := projection.AtomicWrite(w.path, w.content); err != nil {
			return Artifacts{}, fmt.Errorf("writing %s: %w", filepath.Base(w.path), err)
		}
	}
	return out, nil
}
