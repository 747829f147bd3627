// Package interpolate substitutes {{name}} placeholders in template text.
package interpolate

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Result is the output of Interpolate. Unresolved lists placeholder names
// with no matching parameter, once each, in order of first appearance.
type Result struct {
	Text       string
	Unresolved []string
}

// Interpolate replaces every placeholder whose name is a key of params with
// the value, verbatim. Placeholders without a value are left untouched.
// Substituted values are not scanned again.
func Interpolate(text string, params map[string]string) Result {
	if !HasPlaceholders(text) {
		return Result{Text: text, Unresolved: []string{}}
	}

	unresolved := []string{}
	seen := map[string]bool{}

	out := placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			unresolved = append(unresolved, name)
		}
		return match
	})

	return Result{Text: out, Unresolved: unresolved}
}

// Placeholders returns the distinct placeholder names in text, in order of
// first appearance.
func Placeholders(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// HasPlaceholders reports whether text contains at least one placeholder.
func HasPlaceholders(text string) bool {
	return strings.Contains(text, "{{") && placeholder.MatchString(text)
}
