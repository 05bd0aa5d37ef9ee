// Package textutil provides small, pure text-shaping helpers shared by every
// format parser and converter: whitespace collapsing, soft-hyphen removal,
// percent-decoding, display-length measurement and list-item numbering.
package textutil

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const softHyphen = '­'

// isSpaceLike reports whether r is treated as collapsible whitespace: the
// usual ASCII set plus NBSP and zero-width space, both of which show up
// routinely in EPUB/HTML sources copied out of word processors.
func isSpaceLike(r rune) bool {
	switch r {
	case ' ', '​':
		return true
	default:
		return unicode.IsSpace(r)
	}
}

// RemoveSoftHyphens strips U+00AD (SOFT HYPHEN) from s.
func RemoveSoftHyphens(s string) string {
	if !strings.ContainsRune(s, softHyphen) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == softHyphen {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CollapseWhitespace collapses interior runs of whitespace (ASCII
// whitespace plus NBSP/ZWSP) into a single space, while preserving a
// leading run's full length as literal spaces and reducing a trailing run
// to a single trailing space.
func CollapseWhitespace(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	leading := 0
	for leading < len(runes) && isSpaceLike(runes[leading]) {
		leading++
	}
	trailing := 0
	for trailing < len(runes) && isSpaceLike(runes[len(runes)-1-trailing]) {
		trailing++
	}
	end := len(runes) - trailing

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < leading; i++ {
		b.WriteByte(' ')
	}
	seenNonSpace := false
	prevWasSpace := false
	for i := leading; i < end; i++ {
		r := runes[i]
		if isSpaceLike(r) {
			if seenNonSpace && !prevWasSpace {
				b.WriteByte(' ')
				prevWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevWasSpace = false
		seenNonSpace = true
	}
	if trailing > 0 {
		b.WriteByte(' ')
	}
	return b.String()
}

// TrimString strips the same space-like rune set CollapseWhitespace
// collapses, from both ends of s.
func TrimString(s string) string {
	return strings.TrimFunc(s, isSpaceLike)
}

// URLDecode percent-decodes s. Invalid escapes (not two following hex
// digits) pass through unchanged rather than causing an error, since link
// hrefs out of hand-authored HTML/FB2 are frequently not strictly valid.
func URLDecode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' || i+2 >= len(s) {
			b.WriteByte(c)
			continue
		}
		hi, okHi := hexVal(s[i+1])
		lo, okLo := hexVal(s[i+2])
		if !okHi || !okLo {
			b.WriteByte(c)
			continue
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String()
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// DisplayLen returns the number of Unicode scalar values (runes) in s. The
// core has standardized on scalar-value positions uniformly across
// platforms; see SPEC_FULL.md §3 for why the historical UTF-16-on-Windows split
// was dropped.
func DisplayLen(s string) uint64 {
	return uint64(utf8.RuneCountInString(s))
}

// ListStyle enumerates the numbering schemes FormatListItem understands.
type ListStyle string

const (
	ListStyleDecimal    ListStyle = "1"
	ListStyleLowerAlpha ListStyle = "a"
	ListStyleUpperAlpha ListStyle = "A"
	ListStyleLowerRoman ListStyle = "i"
	ListStyleUpperRoman ListStyle = "I"
)

// FormatListItem renders n according to style. Non-positive n always
// renders in decimal form, matching the fallback the source HTML/OOXML
// numbering engines use when a style can't express a value (roman numerals
// have no representation for zero or negative numbers).
func FormatListItem(n int, style ListStyle) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	switch style {
	case ListStyleLowerAlpha:
		return toAlpha(n, false)
	case ListStyleUpperAlpha:
		return toAlpha(n, true)
	case ListStyleLowerRoman:
		return strings.ToLower(toRoman(n))
	case ListStyleUpperRoman:
		return toRoman(n)
	default:
		return strconv.Itoa(n)
	}
}

// toAlpha renders n (1-based) in base-26 spreadsheet-column style:
// 1 -> a, 26 -> z, 27 -> aa, 28 -> ab, ...
func toAlpha(n int, upper bool) string {
	var digits []byte
	for n > 0 {
		n--
		digits = append(digits, byte('a'+n%26))
		n /= 26
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	s := string(digits)
	if upper {
		s = strings.ToUpper(s)
	}
	return s
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// toRoman renders n (1-based, positive) as an upper-case Roman numeral.
func toRoman(n int) string {
	var b strings.Builder
	for _, e := range romanTable {
		for n >= e.value {
			b.WriteString(e.symbol)
			n -= e.value
		}
	}
	return b.String()
}
