package namelist

import (
	"strings"

	"gradlist/internal"
)

// Privacy-mask glyphs seen in published admission namelists. The
// extraction backend is told to emit '*', but this is the contract
// boundary, so alternates are folded here before anything is stored.
var maskGlyphs = map[rune]struct{}{
	'*': {}, '＊': {},
	'X': {}, 'Ｘ': {},
	'O': {}, 'Ｏ': {},
	'○': {}, '●': {},
	'□': {}, '■': {},
	'〇': {},
}

// NormalizeMasks canonicalizes mask glyphs to '*' and then infers masks
// for tokens that are plausibly missing one: when most of the list is
// masked at a common position and a token is exactly one rune shorter,
// the wildcard is inserted at that position (盧嘉 next to 張*睿 and
// 林*茹 becomes 盧*嘉). Rune length of already-masked tokens is never
// changed.
func NormalizeMasks(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, canonicalizeGlyphs(tok))
	}
	return inferSiblingMasks(out)
}

func canonicalizeGlyphs(token string) string {
	runes := []rune(token)
	for i, r := range runes {
		if _, ok := maskGlyphs[r]; ok {
			runes[i] = internal.MaskGlyph
		}
	}
	return string(runes)
}

func inferSiblingMasks(tokens []string) []string {
	type shape struct{ length, pos int }
	counts := map[shape]int{}
	masked := 0
	for _, tok := range tokens {
		runes := []rune(tok)
		pos := maskIndex(runes)
		if pos < 0 {
			continue
		}
		masked++
		counts[shape{len(runes), pos}]++
	}
	if masked == 0 || masked*2 <= len(tokens) {
		return tokens
	}

	var modal shape
	modalN := 0
	for s, n := range counts {
		if n > modalN || (n == modalN && (s.length < modal.length || (s.length == modal.length && s.pos < modal.pos))) {
			modal, modalN = s, n
		}
	}

	for i, tok := range tokens {
		runes := []rune(tok)
		if maskIndex(runes) >= 0 || len(runes) != modal.length-1 {
			continue
		}
		patched := make([]rune, 0, modal.length)
		patched = append(patched, runes[:modal.pos]...)
		patched = append(patched, internal.MaskGlyph)
		patched = append(patched, runes[modal.pos:]...)
		tokens[i] = string(patched)
	}
	return tokens
}

func maskIndex(runes []rune) int {
	for i, r := range runes {
		if r == internal.MaskGlyph {
			return i
		}
	}
	return -1
}
