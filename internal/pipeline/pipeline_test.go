// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/docagent/internal/config"
	"github.com/bartekus/docagent/internal/logging"
	"github.com/bartekus/docagent/internal/report"
	"github.com/bartekus/docagent/internal/signatures"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/app.py", "class App:\n    def method(self):\n        pass\n\ndef run():\n    pass\n")
	writeFile(t, root, "web/index.js", "export function render() {}\nexport const VERSION = 1\n")
	writeFile(t, root, ".git/hooks/hook.py", "def hidden():\n    pass\n")
	writeFile(t, root, ".github/tools/ci.py", "def ci():\n    pass\n")
	writeFile(t, root, "README.md", "# not scanned\n")
	return root
}

func testConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.Root = root
	cfg.History.Backend = config.BackendGoGit
	return cfg
}

func deps() Deps {
	return Deps{Log: logging.Discard(), Now: func() time.Time { return fixedNow }}
}

func TestRun_EndToEnd(t *testing.T) {
	root := newTree(t)
	cfg := testConfig(root)

	sum, err := Run(context.Background(), cfg, deps())
	require.NoError(t, err)

	assert.Equal(t, []signatures.Symbol{
		{File: ".github/tools/ci.py", Kind: signatures.KindPythonFunction, Name: "ci", Language: signatures.LangPython},
		{File: "src/app.py", Kind: signatures.KindPythonClass, Name: "App", Language: signatures.LangPython},
		{File: "src/app.py", Kind: signatures.KindPythonFunction, Name: "run", Language: signatures.LangPython},
		{File: "web/index.js", Kind: signatures.KindJavaScriptFunction, Name: "render", Language: signatures.LangJavaScript},
		{File: "web/index.js", Kind: signatures.KindJavaScriptFunction, Name: "VERSION", Language: signatures.LangJavaScript},
	}, sum.Symbols)
	assert.Empty(t, sum.FailedFiles)
	assert.NotNil(t, sum.Commits)
	assert.Empty(t, sum.Commits)

	require.Len(t, sum.Stages, 3)
	assert.Equal(t, StageResult{Stage: StageScan, Status: StatusPass}, sum.Stages[0])
	assert.Equal(t, StageHistory, sum.Stages[1].Stage)
	assert.Equal(t, StatusDegraded, sum.Stages[1].Status, "a tree without a repository degrades history")
	assert.Equal(t, StageResult{Stage: StageEmit, Status: StatusPass}, sum.Stages[2])
	assert.True(t, sum.Degraded())

	out := filepath.Join(root, "agent_test_output")
	assert.Equal(t, out, sum.OutDir)
	for _, name := range []string{report.SymbolIndexFile, report.ChangelogFile, report.ReleaseNotesFile} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	data, err := os.ReadFile(filepath.Join(out, report.ReleaseNotesFile))
	require.NoError(t, err)
	var bundle report.Bundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Equal(t, "2024-05-06T07:08:09.000000Z", bundle.GeneratedAt)
	assert.Equal(t, "1.0.0", bundle.Version)
	assert.Equal(t, 5, bundle.SignaturesFound)
	assert.Equal(t, sum.Symbols, bundle.APIChanges)
	assert.Equal(t, 0, bundle.CommitsAnalyzed)
}

func TestRun_WithHistory(t *testing.T) {
	root := newTree(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, ".git")))
	repo, err := gogit.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/app.py")
	require.NoError(t, err)
	_, err = wt.Commit("add app", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Ann", Email: "ann@example.com", When: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	sum, err := Run(context.Background(), testConfig(root), deps())
	require.NoError(t, err)

	require.Len(t, sum.Commits, 1)
	assert.Equal(t, "Ann", sum.Commits[0].Author)
	assert.Equal(t, "add app", sum.Commits[0].Message)
	assert.Equal(t, "2024-01-01 09:00:00 +0000", sum.Commits[0].Date)
	assert.Equal(t, StatusPass, sum.Stages[1].Status)

	changelog, err := os.ReadFile(filepath.Join(sum.OutDir, report.ChangelogFile))
	require.NoError(t, err)
	assert.Contains(t, string(changelog), "- ["+sum.Commits[0].Hash+"] 2024-01-01 09:00:00 +0000 - add app (by Ann)\n")
}

func TestRun_EmptyTree(t *testing.T) {
	root := t.TempDir()
	sum, err := Run(context.Background(), testConfig(root), deps())
	require.NoError(t, err)
	assert.Empty(t, sum.Symbols)

	data, err := os.ReadFile(filepath.Join(sum.OutDir, report.SymbolIndexFile))
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<TDD>\n</TDD>\n", string(data))
}

func TestRun_SecondRunIgnoresItsOwnOutput(t *testing.T) {
	root := newTree(t)
	cfg := testConfig(root)
	cfg.Scan.Extensions = []string{".py", ".js", ".json"}

	first, err := Run(context.Background(), cfg, deps())
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, deps())
	require.NoError(t, err)
	assert.Equal(t, first.Symbols, second.Symbols)
}

func TestRun_UnreadableFileDegradesScan(t *testing.T) {
	root := newTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "src", "broken.py")))

	sum, err := Run(context.Background(), testConfig(root), deps())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/broken.py"}, sum.FailedFiles)
	assert.Equal(t, StatusDegraded, sum.Stages[0].Status)
	assert.Len(t, sum.Symbols, 5)
}

func TestRun_ExtraRulesFile(t *testing.T) {
	root := newTree(t)
	writeFile(t, root, "lib/tool.rb", "def helper\nend\n")
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`languages:
  - name: Ruby
    extensions: [".rb"]
    rules:
      - name: def
        pattern: '(?m)^def\s+(\w+)'
        kind: ruby_method
`), 0o644))

	cfg := testConfig(root)
	cfg.Scan.RulesFile = rules

	sum, err := Run(context.Background(), cfg, deps())
	require.NoError(t, err)
	assert.Contains(t, sum.Symbols, signatures.Symbol{File: "lib/tool.rb", Kind: "ruby_method", Name: "helper", Language: "Ruby"})
}

func TestNew_BrokenRulesFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("languages: [\n"), 0o644))

	cfg := testConfig(t.TempDir())
	cfg.Scan.RulesFile = rules

	_, err := New(cfg, deps())
	require.ErrorIs(t, err, ErrConfig)
}

func TestRun_EmitFailure(t *testing.T) {
	root := newTree(t)
	writeFile(t, root, "blocked", "a file where the output directory should be")

	cfg := testConfig(root)
	cfg.OutDir = "blocked"

	sum, err := Run(context.Background(), cfg, deps())
	require.ErrorIs(t, err, ErrEmit)
	require.NotNil(t, sum)
	require.Len(t, sum.Stages, 3)
	assert.Equal(t, StatusFail, sum.Stages[2].Status)
}

func TestRun_MissingRoot(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	sum, err := Run(context.Background(), cfg, deps())
	require.Error(t, err)
	require.Len(t, sum.Stages, 1)
	assert.Equal(t, StatusFail, sum.Stages[0].Status)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(newTree(t)), deps())
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, target string
		want         string
		ok           bool
	}{
		{"/repo", "/repo/agent_test_output", "agent_test_output", true},
		{"/repo", "/repo/a/b", "a/b", true},
		{"/repo", "/repo", "", false},
		{"/repo", "/elsewhere/out", "", false},
		{"/repo", "/repo-out", "", false},
	}
	for _, tt := range tests {
		got, ok := within(tt.root, tt.target)
		assert.Equal(t, tt.ok, ok, "%s in %s", tt.target, tt.root)
		assert.Equal(t, tt.want, got)
	}
}
