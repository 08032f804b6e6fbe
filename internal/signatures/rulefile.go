// SPDX-License-Identifier: AGPL-3.0-or-later

package signatures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk shape of an extra rules file (YAML or TOML).
//
//	languages:
//	  - name: Go
//	    extensions: [".go"]
//	    rules:
//	      - name: func
//	        pattern: '(?m)^func\s+([A-Za-z_]\w*)'
//	        kind: go_function
type RuleFile struct {
	Languages []LanguageSpec `yaml:"languages" toml:"languages"`
}

// LanguageSpec describes a language in a rules file.
type LanguageSpec struct {
	Name       string     `yaml:"name" toml:"name"`
	Extensions []string   `yaml:"extensions" toml:"extensions"`
	Rules      []RuleSpec `yaml:"rules" toml:"rules"`
}

// RuleSpec describes one rule in a rules file. Window, Prefix and PrefixKind
// together form an optional KindOverride.
type RuleSpec struct {
	Name       string `yaml:"name" toml:"name"`
	Pattern    string `yaml:"pattern" toml:"pattern"`
	Kind       string `yaml:"kind" toml:"kind"`
	Groups     []int  `yaml:"groups" toml:"groups"`
	Window     int    `yaml:"window" toml:"window"`
	Prefix     string `yaml:"prefix" toml:"prefix"`
	PrefixKind string `yaml:"prefix_kind" toml:"prefix_kind"`
}

// LoadRuleFile reads and compiles a rules file. The format follows the file
// extension: .yaml/.yml or .toml.
func LoadRuleFile(path string) ([]Language, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rf RuleFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &rf)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing %s: unknown key %s", path, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("rules file %s: unsupported format %q (use .yaml, .yml or .toml)", path, ext)
	}

	return rf.Compile()
}

// Compile validates every spec and compiles its patterns.
func (rf RuleFile) Compile() ([]Language, error) {
	langs := make([]Language, 0, len(rf.Languages))
	for _, ls := range rf.Languages {
		if strings.TrimSpace(ls.Name) == "" {
			return nil, errors.New("language without a name")
		}
		lang := Language{Name: ls.Name, Extensions: ls.Extensions}
		for _, ext := range ls.Extensions {
			if !strings.HasPrefix(ext, ".") {
				return nil, fmt.Errorf("language %s: extension %q must start with a dot", ls.Name, ext)
			}
		}
		for _, rs := range ls.Rules {
			rule, err := rs.compile()
			if err != nil {
				return nil, fmt.Errorf("language %s: %w", ls.Name, err)
			}
			lang.Rules = append(lang.Rules, rule)
		}
		langs = append(langs, lang)
	}
	return langs, nil
}

func (rs RuleSpec) compile() (Rule, error) {
	if rs.Name == "" {
		return Rule{}, errors.New("rule without a name")
	}
	if rs.Kind == "" {
		return Rule{}, fmt.Errorf("rule %s: kind is required", rs.Name)
	}
	re, err := regexp.Compile(rs.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", rs.Name, err)
	}
	if re.NumSubexp() == 0 {
		return Rule{}, fmt.Errorf("rule %s: pattern needs a capture group for the name", rs.Name)
	}
	for _, g := range rs.Groups {
		if g < 1 || g > re.NumSubexp() {
			return Rule{}, fmt.Errorf("rule %s: group %d out of range 1..%d", rs.Name, g, re.NumSubexp())
		}
	}

	rule := Rule{Name: rs.Name, Pattern: re, Kind: rs.Kind, Groups: rs.Groups}
	if rs.Prefix != "" || rs.PrefixKind != "" {
		if rs.Prefix == "" || rs.PrefixKind == "" || rs.Window <= 0 {
			return Rule{}, fmt.Errorf("rule %s: window, prefix and prefix_kind must be set together", rs.Name)
		}
		rule.Override = &KindOverride{Window: rs.Window, Prefix: rs.Prefix, Kind: rs.PrefixKind}
	}
	return rule, nil
}
