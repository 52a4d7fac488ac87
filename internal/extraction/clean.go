package extraction

import "strings"

const snippetLen = 160

// firstJSONObject returns the first balanced {...} object in text.
// Backends wrap their output in markdown fences or surround it with
// prose, so everything outside the braces is discarded. Brace depth is
// tracked outside string literals only, and escaped quotes inside
// strings are honored.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// sanitizeControl replaces raw control characters with spaces. Models
// emit literal newlines inside string values, which is invalid JSON;
// replacing the character keeps the surrounding data intact.
func sanitizeControl(text string) string {
	out := []byte(text)
	for i, c := range out {
		if c < 0x20 {
			out[i] = ' '
		}
	}
	return string(out)
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLen {
		return string(runes[:snippetLen])
	}
	return text
}
