package utils

import (
	"strconv"
	"strings"
)

// The hidden tag embeds the canonical customer key into outbound text using
// zero-width codepoints, so a later reader can recover which customer a
// delivered message belongs to even if the visible text was trimmed or quoted.
const (
	zeroMark  = "\u200B" // zero-width space, binary 0
	oneMark   = "\u200C" // zero-width non-joiner, binary 1
	charSep   = "\u2060" // word joiner, separates encoded characters
	blockMark = "\u200D" // zero-width joiner, delimits the whole tag
)

// AppendHiddenTag appends an invisible encoding of key to text. The visible
// content is unchanged for any renderer that collapses zero-width codepoints.
func AppendHiddenTag(text, key string) string {
	if text == "" || key == "" {
		return text
	}
	return text + " " + blockMark + encodeHiddenKey(key) + blockMark
}

func encodeHiddenKey(key string) string {
	parts := make([]string, 0, len(key))
	for _, ch := range key {
		binary := strconv.FormatInt(int64(ch), 2)
		binary = strings.ReplaceAll(binary, "0", zeroMark)
		binary = strings.ReplaceAll(binary, "1", oneMark)
		parts = append(parts, binary)
	}
	return strings.Join(parts, charSep)
}

// DecodeHiddenTag recovers the key embedded by AppendHiddenTag, or "" when the
// text carries no complete tag. Nothing in the runtime pipeline calls this yet;
// it exists so the encoding stays honest about being reversible.
func DecodeHiddenTag(text string) string {
	first := strings.Index(text, blockMark)
	if first < 0 {
		return ""
	}
	rest := text[first+len(blockMark):]
	end := strings.Index(rest, blockMark)
	if end < 0 {
		return ""
	}

	var out strings.Builder
	for _, enc := range strings.Split(rest[:end], charSep) {
		if enc == "" {
			return ""
		}
		bits := strings.ReplaceAll(enc, zeroMark, "0")
		bits = strings.ReplaceAll(bits, oneMark, "1")
		n, err := strconv.ParseInt(bits, 2, 32)
		if err != nil {
			return ""
		}
		out.WriteRune(rune(n))
	}
	return out.String()
}
