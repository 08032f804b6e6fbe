// SPDX-License-Identifier: AGPL-3.0-or-later

// Package signatures holds the per-language rule tables and the lexical
// extraction that turns source text into Symbol records.
//
// Rules are data: a pattern plus the kind it produces. Nothing here parses a
// grammar; a rule matches whatever text its pattern matches.
package signatures

import (
	"fmt"
	"regexp"
	"sort"
)

// Symbol kinds produced by the built-in rules.
const (
	KindClass              = "class"
	KindMethod             = "method"
	KindPythonFunction     = "python_function"
	KindPythonClass        = "python_class"
	KindJavaScriptFunction = "javascript_function"
)

// Language names produced by the built-in rules.
const (
	LangCSharp     = "C#"
	LangPython     = "Python"
	LangJavaScript = "JavaScript"
)

const ident = `([A-Za-z_][A-Za-z0-9_]*)`

// Rule turns every match of Pattern into one Symbol of Kind.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    string
	// Groups lists the capture groups holding the name, tried in order; the
	// first non-empty one wins. Nil means group 1.
	Groups []int
	// Override, when set, may replace Kind based on the text at the match start.
	Override *KindOverride
}

// KindOverride replaces a rule's kind when the first Window bytes of a match,
// with surrounding whitespace trimmed, start with Prefix.
type KindOverride struct {
	Window int
	Prefix string
	Kind   string
}

// Language groups the file extensions and ordered rules of one source language.
type Language struct {
	Name       string
	Extensions []string
	Rules      []Rule
}

// Table maps file extensions to languages.
type Table struct {
	languages []Language
	byExt     map[string]int
}

// NewTable builds a table from languages. An extension claimed by two
// languages is an error.
func NewTable(langs ...Language) (*Table, error) {
	t := &Table{byExt: make(map[string]int)}
	for _, lang := range langs {
		if err := t.add(lang); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(lang Language) error {
	idx := len(t.languages)
	for _, ext := range lang.Extensions {
		if owner, ok := t.byExt[ext]; ok {
			return fmt.Errorf("extension %s already belongs to %s", ext, t.languages[owner].Name)
		}
		t.byExt[ext] = idx
	}
	t.languages = append(t.languages, lang)
	return nil
}

// Builtin returns the rule table for C#, Python and JavaScript.
func Builtin() *Table {
	t, err := NewTable(CSharp(), Python(), JavaScript())
	if err != nil {
		panic(err)
	}
	return t
}

// CSharp finds class declarations, then anything shaped like a modified
// member followed by an opening parenthesis.
func CSharp() Language {
	return Language{
		Name:       LangCSharp,
		Extensions: []string{".cs"},
		Rules: []Rule{
			{
				Name:    "class",
				Pattern: regexp.MustCompile(`\bclass\s+` + ident),
				Kind:    KindClass,
			},
			{
				Name:    "method",
				Pattern: regexp.MustCompile(`\b(?:public|private|protected|internal|static|virtual|override)\b[^{;()]*\b` + ident + `\s*\(`),
				Kind:    KindMethod,
			},
		},
	}
}

// Python finds top-level def and class statements. Only unindented lines
// match, so methods inside a class body are not reported.
func Python() Language {
	return Language{
		Name:       LangPython,
		Extensions: []string{".py"},
		Rules: []Rule{
			{
				Name:    "definition",
				Pattern: regexp.MustCompile(`(?m)^(?:async\s+)?(?:def|class)\s+` + ident),
				Kind:    KindPythonClass,
				Override: &KindOverride{
					Window: 10,
					Prefix: "def",
					Kind:   KindPythonFunction,
				},
			},
		},
	}
}

// JavaScript finds function declarations (plain or exported) and exported
// constants. The constant rule only looks at the assignment head.
func JavaScript() Language {
	return Language{
		Name:       LangJavaScript,
		Extensions: []string{".js"},
		Rules: []Rule{
			{
				Name:    "function",
				Pattern: regexp.MustCompile(`function\s+` + ident + `|export\s+function\s+` + ident),
				Kind:    KindJavaScriptFunction,
				Groups:  []int{1, 2},
			},
			{
				Name:    "export-const",
				Pattern: regexp.MustCompile(`export\s+const\s+` + ident + `\s*=`),
				Kind:    KindJavaScriptFunction,
			},
		},
	}
}

// With returns a new table with extra merged in. Rules for a language already
// in the table are appended after its existing rules; new languages are added.
func (t *Table) With(extra []Language) (*Table, error) {
	merged := make([]Language, len(t.languages))
	for i, lang := range t.languages {
		merged[i] = Language{
			Name:       lang.Name,
			Extensions: append([]string(nil), lang.Extensions...),
			Rules:      append([]Rule(nil), lang.Rules...),
		}
	}

	for _, lang := range extra {
		found := false
		for i := range merged {
			if merged[i].Name != lang.Name {
				continue
			}
			found = true
			merged[i].Rules = append(merged[i].Rules, lang.Rules...)
			for _, ext := range lang.Extensions {
				if !contains(merged[i].Extensions, ext) {
					merged[i].Extensions = append(merged[i].Extensions, ext)
				}
			}
			break
		}
		if !found {
			merged = append(merged, lang)
		}
	}

	return NewTable(merged...)
}

// ForExtension returns the language handling ext (".py"), if any.
func (t *Table) ForExtension(ext string) (*Language, bool) {
	idx, ok := t.byExt[ext]
	if !ok {
		return nil, false
	}
	return &t.languages[idx], true
}

// Extensions returns every extension in the table, sorted.
func (t *Table) Extensions() []string {
	exts := make([]string, 0, len(t.byExt))
	for ext := range t.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Languages returns the languages in table order.
func (t *Table) Languages() []Language {
	return append([]Language(nil), t.languages...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
