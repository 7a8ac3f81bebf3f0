// Package features builds the per-token feature records consumed by the
// sequence labelling models: the layout-aware full text vector, the dateline
// vector and the named-entity vector.
package features

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Bin counts of the discretised layout features.
const (
	NbBinsPosition = 12
	NbBinsSpace    = 5
	NbBinsDensity  = 5
)

// Line status values.
const (
	LineStart = "LINESTART"
	LineIn    = "LINEIN"
	LineEnd   = "LINEEND"
)

// Block status values.
const (
	BlockStart = "BLOCKSTART"
	BlockIn    = "BLOCKIN"
	BlockEnd   = "BLOCKEND"
)

// Alignment, font and size values.
const (
	LineIndent   = "LINEINDENT"
	AlignedLeft  = "ALIGNEDLEFT"
	NewFont      = "NEWFONT"
	SameFont     = "SAMEFONT"
	HigherFont   = "HIGHERFONT"
	SameFontSize = "SAMEFONTSIZE"
	LowerFont    = "LOWERFONT"
)

// Capitalisation and digit values.
const (
	InitCap        = "INITCAP"
	AllCap         = "ALLCAP"
	NoCaps         = "NOCAPS"
	AllDigit       = "ALLDIGIT"
	ContainsDigits = "CONTAINSDIGITS"
	NoDigit        = "NODIGIT"
)

// Punctuation types.
const (
	Punct       = "PUNCT"
	OpenBracket = "OPENBRACKET"
	EndBracket  = "ENDBRACKET"
	Dot         = "DOT"
	Comma       = "COMMA"
	Hyphen      = "HYPHEN"
	Quote       = "QUOTE"
	NoPunct     = "NOPUNCT"
)

var (
	punctPattern = regexp.MustCompile(`^[,:;?.]+$`)
	digitPattern = regexp.MustCompile(`^\d+$`)
)

// LinearScaling maps value in [0, total] onto nbBins integer bins. Values at
// or beyond total give nbBins, non-positive values give 0, so the result is
// always within [0, nbBins].
func LinearScaling(value, total float64, nbBins int) int {
	if math.IsNaN(value) || math.IsNaN(total) {
		return 0
	}
	if value >= total {
		return nbBins
	}
	if value <= 0 {
		return 0
	}
	bin := int(math.Floor(value / total * float64(nbBins)))
	return max(0, min(bin, nbBins))
}

// Prefix returns the first n runes of s, or s when it is shorter.
func Prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Suffix returns the last n runes of s, or s when it is shorter.
func Suffix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

// PunctType classifies a token. Exact matches on brackets, dot, comma, hyphen
// and quotes take precedence over the generic PUNCT class.
func PunctType(text string) string {
	switch text {
	case "(", "[":
		return OpenBracket
	case ")", "]":
		return EndBracket
	case ".":
		return Dot
	case ",":
		return Comma
	case "-":
		return Hyphen
	case "\"", "'", "`":
		return Quote
	}
	if punctPattern.MatchString(text) {
		return Punct
	}
	return NoPunct
}

// Capitalisation returns ALLCAP when no rune is lower case, INITCAP when only
// the first rune is upper case, NOCAPS otherwise.
func Capitalisation(text string) string {
	if text == "" {
		return NoCaps
	}
	if allCapital(text) {
		return AllCap
	}
	first, _ := utf8.DecodeRuneInString(text)
	if unicode.IsUpper(first) {
		return InitCap
	}
	return NoCaps
}

func allCapital(text string) bool {
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// Digit returns ALLDIGIT, CONTAINSDIGITS or NODIGIT.
func Digit(text string) string {
	if digitPattern.MatchString(text) {
		return AllDigit
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		return ContainsDigits
	}
	return NoDigit
}

// WordShape maps upper case letters to X, lower case to x and digits to d,
// keeping the first rune and the last two, and collapsing runs in between.
func WordShape(word string) string {
	if word == "" {
		return ""
	}
	shape := make([]rune, 0, len(word))
	for _, r := range word {
		switch {
		case unicode.IsUpper(r):
			shape = append(shape, 'X')
		case unicode.IsLetter(r):
			shape = append(shape, 'x')
		case unicode.IsDigit(r):
			shape = append(shape, 'd')
		default:
			shape = append(shape, r)
		}
	}
	if len(shape) <= 3 {
		return string(shape)
	}

	var sb strings.Builder
	sb.WriteRune(shape[0])
	var last rune
	for i, r := range shape[1 : len(shape)-2] {
		if i == 0 || r != last {
			sb.WriteRune(r)
		}
		last = r
	}
	sb.WriteString(string(shape[len(shape)-2:]))
	return sb.String()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// writeLexical writes the token, its lower case form and the four prefixes
// and suffixes shared by every vector.
func writeLexical(sb *strings.Builder, s string) {
	sb.WriteString(s)
	sb.WriteByte(' ')
	sb.WriteString(strings.ToLower(s))
	for i := 1; i <= 4; i++ {
		sb.WriteByte(' ')
		sb.WriteString(Prefix(s, i))
	}
	for i := 1; i <= 4; i++ {
		sb.WriteByte(' ')
		sb.WriteString(Suffix(s, i))
	}
}

// writeCapsDigit writes capitalisation and digit, printing NOCAPS for
// all-digit tokens.
func writeCapsDigit(sb *strings.Builder, capitalisation, digit string) {
	sb.WriteByte(' ')
	if digit == AllDigit {
		sb.WriteString(NoCaps)
	} else {
		sb.WriteString(capitalisation)
	}
	sb.WriteByte(' ')
	sb.WriteString(digit)
}

func writeLabel(sb *strings.Builder, label string) {
	sb.WriteByte(' ')
	if label == "" {
		sb.WriteString("0")
	} else {
		sb.WriteString(label)
	}
	sb.WriteByte('\n')
}
