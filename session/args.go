// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import "strings"

// Separators is the configurable token table a filter invocation string is
// split on (spec §6.1). The zero value is invalid; use DefaultSeparators.
type Separators struct {
	Args      byte // between name and each key=value pair, default ':'
	NameValue byte // between a key and its value, default '='
	Fragment  byte // introduces a per-PID property override, default '#'
	List      byte // separates list-valued args, default ','
	Negation  byte // prefixes a bare key to mean false, default '!'
	Link      byte // introduces an explicit link target, default '@'
}

// DefaultSeparators is GPAC's default separator table (spec §6.1).
func DefaultSeparators() Separators {
	return Separators{Args: ':', NameValue: '=', Fragment: '#', List: ',', Negation: '!', Link: '@'}
}

// ParsedFilter is one filter invocation string, split into its registry
// name, constructor arguments, per-PID property fragment overrides, and an
// optional explicit link target.
type ParsedFilter struct {
	Name       string
	Args       map[string]string
	Fragments  map[string]string // per-PID property overrides (after '#')
	LinkTarget string            // non-empty if an explicit '@target' was given
}

// ParseFilterArgs splits a filter invocation string (spec §6.1) using sep's
// separator table. The first Args-separated token is the registry name;
// subsequent tokens are key=value pairs, key (boolean true), or !key
// (boolean false). A token beginning with Link names an explicit link
// target consuming the rest of that token. Fragment-separated suffixes on
// any token are collected as post-PID-declaration property overrides.
func ParseFilterArgs(spec string, sep Separators) ParsedFilter {
	out := ParsedFilter{Args: map[string]string{}, Fragments: map[string]string{}}
	tokens := splitUnescaped(spec, sep.Args)
	if len(tokens) == 0 {
		return out
	}
	out.Name, out.Fragments = splitFragment(tokens[0], sep.Fragment)

	for _, tok := range tokens[1:] {
		tok, frag := splitFragment(tok, sep.Fragment)
		for k, v := range frag {
			out.Fragments[k] = v
		}
		if tok == "" {
			continue
		}
		if tok[0] == sep.Link {
			out.LinkTarget = tok[1:]
			continue
		}
		negate := false
		if tok[0] == sep.Negation {
			negate = true
			tok = tok[1:]
		}
		if i := strings.IndexByte(tok, sep.NameValue); i >= 0 {
			out.Args[tok[:i]] = tok[i+1:]
			continue
		}
		if negate {
			out.Args[tok] = "false"
		} else {
			out.Args[tok] = "true"
		}
	}
	return out
}

// splitFragment peels off a trailing "#KEY=VALUE[#KEY=VALUE]*" suffix,
// returning the token with the suffix removed and the parsed overrides.
func splitFragment(tok string, fragSep byte) (string, map[string]string) {
	i := strings.IndexByte(tok, fragSep)
	if i < 0 {
		return tok, nil
	}
	overrides := map[string]string{}
	head := tok[:i]
	for _, part := range strings.Split(tok[i+1:], string(fragSep)) {
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			overrides[part[:eq]] = part[eq+1:]
		} else {
			overrides[part] = "true"
		}
	}
	return head, overrides
}

// splitUnescaped splits s on sep, treating a doubled separator as an
// escaped literal character rather than a delimiter (GPAC's convention for
// letting arg values contain the args separator itself).
func splitUnescaped(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i+1 < len(s) && s[i+1] == sep {
				cur.WriteByte(sep)
				i++
				continue
			}
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	out = append(out, cur.String())
	return out
}

// ListValues splits a list-valued argument on sep.List.
func ListValues(value string, sep Separators) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, string(sep.List))
}
