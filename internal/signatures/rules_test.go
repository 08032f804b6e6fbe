// SPDX-License-Identifier: AGPL-3.0-or-later

package signatures

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_Extensions(t *testing.T) {
	table := Builtin()
	assert.Equal(t, []string{".cs", ".js", ".py"}, table.Extensions())

	lang, ok := table.ForExtension(".py")
	require.True(t, ok)
	assert.Equal(t, LangPython, lang.Name)

	_, ok = table.ForExtension(".PY")
	assert.False(t, ok, "extension lookup is case-sensitive")

	_, ok = table.ForExtension(".ts")
	assert.False(t, ok)
}

func TestNewTable_DuplicateExtension(t *testing.T) {
	_, err := NewTable(Python(), Language{Name: "Other", Extensions: []string{".py"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already belongs to Python")
}

func TestTable_With(t *testing.T) {
	base := Builtin()
	extra := []Language{
		{
			Name: LangPython,
			Rules: []Rule{{
				Name:    "method",
				Pattern: regexp.MustCompile(`(?m)^\s+def\s+([A-Za-z_]\w*)`),
				Kind:    "python_method",
			}},
		},
		{
			Name:       "Go",
			Extensions: []string{".go"},
			Rules: []Rule{{
				Name:    "func",
				Pattern: regexp.MustCompile(`(?m)^func\s+([A-Za-z_]\w*)`),
				Kind:    "go_function",
			}},
		},
	}

	merged, err := base.With(extra)
	require.NoError(t, err)

	assert.Equal(t, []string{".cs", ".go", ".js", ".py"}, merged.Extensions())

	py, ok := merged.ForExtension(".py")
	require.True(t, ok)
	require.Len(t, py.Rules, 2)
	assert.Equal(t, "definition", py.Rules[0].Name)
	assert.Equal(t, "method", py.Rules[1].Name)

	got := Extract(py, "m.py", "class A:\n    def run(self):\n        pass\n")
	require.Len(t, got, 2)
	assert.Equal(t, Symbol{File: "m.py", Kind: KindPythonClass, Name: "A", Language: LangPython}, got[0])
	assert.Equal(t, Symbol{File: "m.py", Kind: "python_method", Name: "run", Language: LangPython}, got[1])

	// The base table is untouched.
	orig, _ := base.ForExtension(".py")
	assert.Len(t, orig.Rules, 1)
	assert.Len(t, base.Languages(), 3)
}

func TestLoadRuleFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `languages:
  - name: Go
    extensions: [".go"]
    rules:
      - name: func
        pattern: '(?m)^func\s+([A-Za-z_]\w*)'
        kind: go_function
  - name: Python
    rules:
      - name: lambda
        pattern: '(\w+)\s*=\s*lambda'
        kind: python_lambda
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	langs, err := LoadRuleFile(path)
	require.NoError(t, err)
	require.Len(t, langs, 2)

	table, err := Builtin().With(langs)
	require.NoError(t, err)

	goLang, ok := table.ForExtension(".go")
	require.True(t, ok)
	got := Extract(goLang, "main.go", "package main\n\nfunc main() {}\nfunc helper() {}\n")
	require.Len(t, got, 2)
	assert.Equal(t, "main", got[0].Name)
	assert.Equal(t, "go_function", got[1].Kind)
	assert.Equal(t, "Go", got[1].Language)
}

func TestLoadRuleFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	content := `[[languages]]
name = "Ruby"
extensions = [".rb"]

[[languages.rules]]
name = "def"
pattern = '(?m)^(?:def\s+(\w+)|class\s+(\w+))'
kind = "ruby_class"
groups = [1, 2]
window = 8
prefix = "def"
prefix_kind = "ruby_method"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	langs, err := LoadRuleFile(path)
	require.NoError(t, err)
	require.Len(t, langs, 1)
	require.Len(t, langs[0].Rules, 1)

	got := Extract(&langs[0], "a.rb", "class Foo\ndef bar\nend\n")
	require.Len(t, got, 2)
	assert.Equal(t, Symbol{File: "a.rb", Kind: "ruby_class", Name: "Foo", Language: "Ruby"}, got[0])
	assert.Equal(t, Symbol{File: "a.rb", Kind: "ruby_method", Name: "bar", Language: "Ruby"}, got[1])
}

func TestLoadRuleFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{
			name:     "bad pattern",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extensions: ['.x']\n    rules:\n      - {name: r, pattern: '(', kind: k}\n",
			contains: "rule r",
		},
		{
			name:     "no capture group",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extensions: ['.x']\n    rules:\n      - {name: r, pattern: 'abc', kind: k}\n",
			contains: "capture group",
		},
		{
			name:     "group out of range",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extensions: ['.x']\n    rules:\n      - {name: r, pattern: '(a)', kind: k, groups: [2]}\n",
			contains: "out of range",
		},
		{
			name:     "unknown yaml field",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extension: ['.x']\n",
			contains: "extension",
		},
		{
			name:     "unknown toml key",
			file:     "rules.toml",
			content:  "[[languages]]\nname = \"X\"\nfoo = 1\n",
			contains: "unknown key",
		},
		{
			name:     "partial override",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extensions: ['.x']\n    rules:\n      - {name: r, pattern: '(a)', kind: k, prefix: def}\n",
			contains: "set together",
		},
		{
			name:     "extension without dot",
			file:     "rules.yaml",
			content:  "languages:\n  - name: X\n    extensions: ['x']\n",
			contains: "must start with a dot",
		},
		{
			name:     "unsupported format",
			file:     "rules.json",
			content:  "{}",
			contains: "unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadRuleFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadRuleFile_EmptyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	langs, err := LoadRuleFile(path)
	require.NoError(t, err)
	assert.Empty(t, langs)
}
