// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"github.com/bartekus/docagent/internal/history"
	"github.com/bartekus/docagent/internal/report"
	"github.com/bartekus/docagent/internal/signatures"
)

// Status represents the outcome of a stage.
type Status string

const (
	StatusPass Status = "pass"
	// StatusDegraded means the stage finished but part of its input was lost,
	// e.g. a file that could not be read or a history backend that failed.
	StatusDegraded Status = "degraded"
	StatusFail     Status = "fail"
)

// Stage names, in execution order.
const (
	StageScan    = "scan"
	StageHistory = "history"
	StageEmit    = "emit"
)

// StageResult represents the result of a single stage.
type StageResult struct {
	Stage  string `json:"stage"`
	Status Status `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Summary is what a full run produced.
type Summary struct {
	Symbols     []signatures.Symbol `json:"symbols"`
	Commits     []history.Commit    `json:"commits"`
	FailedFiles []string            `json:"failed_files"`
	OutDir      string              `json:"out_dir"`
	Artifacts   report.Artifacts    `json:"-"`
	Stages      []StageResult       `json:"stages"`
}

// Degraded reports whether any stage lost input without failing.
func (s *Summary) Degraded() bool {
	for _, st := range s.Stages {
		if st.Status == StatusDegraded {
			return true
		}
	}
	return false
}
