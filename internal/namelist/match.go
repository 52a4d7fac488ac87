package namelist

import (
	"strings"

	"gradlist/internal"
)

// SplitNames splits a stored comma separated token string, trimming
// whitespace and dropping empty tokens.
func SplitNames(stored string) []string {
	parts := strings.Split(stored, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether candidate appears in the stored token string,
// either exactly or against a masked token of identical rune length
// where '*' accepts any single rune. The first matching token in list
// order is returned.
func Match(candidate, stored string) (bool, string) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || strings.TrimSpace(stored) == "" {
		return false, ""
	}

	for _, token := range SplitNames(stored) {
		if token == candidate {
			return true, token
		}
		if strings.ContainsRune(token, internal.MaskGlyph) && wildcardEqual(candidate, token) {
			return true, token
		}
	}
	return false, ""
}

func wildcardEqual(candidate, token string) bool {
	c := []rune(candidate)
	t := []rune(token)
	if len(c) != len(t) {
		return false
	}
	for i := range t {
		if t[i] != internal.MaskGlyph && t[i] != c[i] {
			return false
		}
	}
	return true
}
