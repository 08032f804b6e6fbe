// SPDX-License-Identifier: AGPL-3.0-or-later

package signatures

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Symbol is one lexically matched code symbol.
// The JSON field names are the ones written to release_notes.json.
type Symbol struct {
	File     string `json:"file"`
	Kind     string `json:"type"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Extract applies every rule of lang to content. Results follow rule order,
// then match order within a rule. Nothing is deduplicated.
func Extract(lang *Language, file, content string) []Symbol {
	var out []Symbol
	for i := range lang.Rules {
		rule := &lang.Rules[i]
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(content, -1) {
			name := rule.name(content, loc)
			if name == "" {
				continue
			}
			out = append(out, Symbol{
				File:     file,
				Kind:     rule.kind(content, loc[0]),
				Name:     name,
				Language: lang.Name,
			})
		}
	}
	return out
}

func (r *Rule) name(content string, loc []int) string {
	groups := r.Groups
	if len(groups) == 0 {
		groups = []int{1}
	}
	for _, g := range groups {
		start, end := 2*g, 2*g+1
		if end >= len(loc) || loc[start] < 0 {
			continue
		}
		if s := content[loc[start]:loc[end]]; s != "" {
			return s
		}
	}
	return ""
}

func (r *Rule) kind(content string, start int) string {
	o := r.Override
	if o == nil {
		return r.Kind
	}
	end := start + o.Window
	if end > len(content) {
		end = len(content)
	}
	if strings.HasPrefix(strings.TrimSpace(content[start:end]), o.Prefix) {
		return o.Kind
	}
	return r.Kind
}

// Decode turns raw file bytes into text without ever failing. A UTF-8 or
// UTF-16 byte order mark selects the encoding (and is dropped); otherwise the
// bytes are taken as UTF-8 and malformed sequences are removed. Behind a BOM
// the decoder substitutes U+FFFD instead.
func Decode(raw []byte) string {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		out = raw
	}
	return strings.ToValidUTF8(string(out), "")
}
