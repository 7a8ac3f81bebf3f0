package layout

import "strings"

// Delimiters split text into tokens. Each delimiter becomes a token of its
// own so punctuation is featurised separately from words.
const Delimiters = " \n\r\t\u00a0([•*,:;?.!/)-–‐\"“”‘’'`$]*♦♥♣♠"

// Tokenize splits text into word and delimiter tokens, keeping every
// character. Concatenating the result reproduces the input.
func Tokenize(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if !strings.ContainsRune(Delimiters, r) {
			continue
		}
		if i > start {
			out = append(out, text[start:i])
		}
		end := i + len(string(r))
		out = append(out, text[i:end])
		start = end
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// TextTokens tokenizes plain text into tokens without geometry. Offsets are
// byte positions in text.
func TextTokens(text string) []Token {
	parts := Tokenize(text)
	out := make([]Token, len(parts))
	for i, s := range parts {
		out[i] = Token{Text: s, BlockPtr: -1}
	}
	return RecomputeOffsets(out)
}
