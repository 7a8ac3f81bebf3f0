// Package lexicon provides the read-only gazetteers used by feature
// construction: months, countries, cities, locations, person titles and
// suffixes. A Lexicon is built explicitly and passed to the builders that
// need it; it is safe for concurrent use once constructed.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-medreport/internal/layout"
)

//go:embed resources/default.yaml
var defaultResource []byte

// Resource is the on-disk YAML form of a lexicon.
type Resource struct {
	Months    []string `yaml:"months"`
	Countries []string `yaml:"countries"`
	Cities    []string `yaml:"cities"`
	Locations []string `yaml:"locations"`
	Titles    []string `yaml:"titles"`
	Suffixes  []string `yaml:"suffixes"`
}

// Lexicon answers membership queries on normalised tokens.
type Lexicon struct {
	months    map[string]struct{}
	countries map[string]struct{}
	cities    map[string]struct{}

	locations *phraseIndex
	titles    *phraseIndex
	suffixes  *phraseIndex
}

var yearPattern = regexp.MustCompile(`[12][0-9]{3}`)

// Default returns the lexicon embedded in the binary.
func Default() (*Lexicon, error) {
	return Parse(defaultResource)
}

// MustDefault is Default for package initialisation and tests.
func MustDefault() *Lexicon {
	lex, err := Default()
	if err != nil {
		panic(err)
	}
	return lex
}

// Load reads a YAML lexicon from path. An empty path loads the default.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML content.
func Parse(data []byte) (*Lexicon, error) {
	var res Resource
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	return New(res), nil
}

// New builds a lexicon from in-memory lists.
func New(res Resource) *Lexicon {
	return &Lexicon{
		months:    toSet(res.Months),
		countries: toSet(res.Countries),
		cities:    toSet(res.Cities),
		locations: newPhraseIndex(append(append([]string{}, res.Locations...), append(res.Countries, res.Cities...)...)),
		titles:    newPhraseIndex(res.Titles),
		suffixes:  newPhraseIndex(res.Suffixes),
	}
}

// Normalize applies NFKC and case folding so lookups ignore case and
// compatibility forms.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// IsYear reports whether the token contains a plausible four digit year.
func (l *Lexicon) IsYear(tok string) bool {
	return yearPattern.MatchString(tok)
}

// IsMonth reports whether the token is a month name or abbreviation.
func (l *Lexicon) IsMonth(tok string) bool {
	_, ok := l.months[Normalize(tok)]
	return ok
}

// IsCountry reports whether the token is a single-word country name.
func (l *Lexicon) IsCountry(tok string) bool {
	_, ok := l.countries[Normalize(tok)]
	return ok
}

// IsCity reports whether the token is a single-word city name.
func (l *Lexicon) IsCity(tok string) bool {
	_, ok := l.cities[Normalize(tok)]
	return ok
}

// phraseIndex matches multi-token entries, keyed by their first word.
type phraseIndex struct {
	byFirst map[string][][]string
}

func newPhraseIndex(entries []string) *phraseIndex {
	idx := &phraseIndex{byFirst: make(map[string][][]string)}
	for _, e := range entries {
		words := words(e)
		if len(words) == 0 {
			continue
		}
		idx.byFirst[words[0]] = append(idx.byFirst[words[0]], words)
	}
	return idx
}

// words tokenizes an entry the same way documents are tokenized, dropping
// whitespace, and normalises every word.
func words(s string) []string {
	var out []string
	for _, w := range layout.Tokenize(s) {
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, Normalize(w))
	}
	return out
}
