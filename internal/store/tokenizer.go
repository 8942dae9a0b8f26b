package store

import (
	"regexp"
	"strings"
)

// tokenPattern matches ASCII word runs and individual Han characters.
// Log corpora mix English identifiers with Chinese prose; splitting Han
// text per character keeps recall high without a segmentation dictionary.
var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9_]+|[\x{4e00}-\x{9fff}]`)

// Tokenize lowercases text and splits it into BM25 terms. ASCII
// alphanumeric runs (including underscores) become single tokens; each
// CJK character is its own token. Everything else is dropped.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
