// Package pagerange normalises bibliographic page ranges and parses page
// selections.
package pagerange

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

var (
	pagePattern    = regexp.MustCompile(`[A-Ze]?\d+[A-Z]?`)
	pageDigits     = regexp.MustCompile(`\d+`)
	prefixPattern  = regexp.MustCompile(`^[A-Ze]$`)
	postfixPattern = regexp.MustCompile(`^[A-Z]$`)
)

// page is one matched page number. value is -1 when no integer could be
// read from text.
type page struct {
	text    string
	value   int
	numeric bool
	prefix  string
	postfix string
}

func parsePage(text string) page {
	p := page{text: text, value: -1}
	if v, err := strconv.ParseInt(text, 10, 32); err == nil {
		p.value = int(v)
		p.numeric = true
		return p
	}
	digits := pageDigits.FindString(text)
	if digits == "" {
		return p
	}
	v, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return p
	}
	p.value = int(v)
	if first := text[:1]; prefixPattern.MatchString(first) {
		p.prefix = first
	} else if last := text[len(text)-1:]; postfixPattern.MatchString(last) {
		p.postfix = last
	}
	return p
}

// decorate writes value with the letters of p around it.
func (p page) decorate(value int) string {
	switch {
	case p.prefix != "":
		return p.prefix + strconv.Itoa(value)
	case p.postfix != "":
		return strconv.Itoa(value) + p.postfix
	default:
		return strconv.Itoa(value)
	}
}

// Normalize rewrites a page range into the "first--last" form. Abbreviated
// end pages are expanded: "433-8" becomes "433--438" and "125-12" becomes
// "125--137". Letter prefixes and suffixes such as "L74" or "143D" are kept.
// A string without any page number is returned unchanged.
//
// An abbreviated end page is ambiguous between substitution of the trailing
// digits and addition to the first page. End pages of 50 and more are always
// substituted. Below that, the end page is added when it is smaller than the
// matching trailing digits of the first page and substituted otherwise.
func Normalize(raw string) string {
	matches := pagePattern.FindAllString(raw, 2)
	if len(matches) == 0 {
		return raw
	}

	first := parsePage(matches[0])
	out := first.text
	if first.numeric {
		out = strconv.Itoa(first.value)
	}
	if len(matches) < 2 {
		return out
	}

	last := parsePage(matches[1])
	begin, end := first.value, last.value

	switch {
	case end != -1 && end < begin:
		if end >= 50 {
			lastText := last.text
			if upper := len(first.text) - len(last.text); upper > 0 && upper < len(first.text) {
				lastText = first.text[:upper] + lastText
			}
			return out + "--" + lastText
		}
		mod := 10
		if end >= 10 {
			mod = 100
		}
		if trailing := begin % mod; end < trailing {
			end = begin + end
		} else {
			end = begin - trailing + end
		}
		return out + "--" + last.decorate(end)
	case end != -1 && (last.prefix != "" || last.postfix != ""):
		return out + "--" + last.decorate(end)
	default:
		return out + "--" + last.text
	}
}

// Range is an inclusive span of 1-based page numbers.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether page falls inside r.
func (r Range) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// ParseSelection reads a page selection such as "1-3,5". An empty selection
// yields no ranges.
func ParseSelection(s string) ([]Range, error) {
	var out []Range
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		startText, endText, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(startText))
		if err != nil {
			return nil, errors.Newf(errors.ErrorTypeInvalidInput, "invalid page %q", startText).WithContext(s)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(endText)); err != nil {
				return nil, errors.Newf(errors.ErrorTypeInvalidInput, "invalid page %q", endText).WithContext(s)
			}
		}
		out = append(out, Range{Start: start, End: end})
	}
	return out, nil
}

// Clamp bounds ranges to [1, total] and drops the empty ones.
func Clamp(ranges []Range, total int) []Range {
	var valid []Range
	for _, r := range ranges {
		start, end := r.Start, r.End
		if start < 1 {
			start = 1
		}
		if end > total {
			end = total
		}
		if start > end {
			continue
		}
		valid = append(valid, Range{Start: start, End: end})
	}
	return valid
}
