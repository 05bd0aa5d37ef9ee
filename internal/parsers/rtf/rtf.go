// Package rtf implements the RTF parser: a hand-rolled lexer/state machine
// over the RTF control-word grammar. No maintained RTF-to-text Go library
// was found in the pack or is confidently known in the ecosystem, so this
// is grounded on the teacher's own hand-rolled text-processing style
// (fb2/stylesheet.go, fb2/templates.go: small recursive state machines
// over a custom grammar) rather than on any third-party parser.
package rtf

import (
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/textutil"
)

// Parser implements parser.Parser for RTF documents.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (*Parser) Name() string                { return "Rich Text Format" }
func (*Parser) Extensions() []string        { return []string{"rtf"} }
func (*Parser) SupportedFlags() parser.Flag { return 0 }

func (p *Parser) Parse(ctx parser.Context) (*docmodel.Document, error) {
	raw, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		return nil, parser.NewError(p.Name(), parser.KindIO, err)
	}
	b := convert(raw)
	out := &docmodel.Document{
		Buffer: docmodel.DocumentBuffer{Content: b.text.String(), Markers: b.markers},
	}
	out.Stats = docmodel.ComputeStats(out.Buffer.Content)
	return out, nil
}

// skipDestinations names control words whose group content is non-visible
// bookkeeping (font/color tables, document info, embedded pictures) and
// must not leak into the text buffer. \fldinst is deliberately absent:
// its content is where the HYPERLINK field-code idiom lives, and the
// state machine needs to see it as ordinary plain text to recognize it.
var skipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "generator": true, "header": true, "footer": true,
	"footnote": true, "annotation": true, "themedata": true,
	"colorschememapping": true, "datastore": true, "object": true,
	"listtable": true, "listoverridetable": true, "revtbl": true,
	"rsidtbl": true, "xmlnstbl": true, "panose": true, "latentstyles": true,
}

type builder struct {
	text        strings.Builder
	token       strings.Builder
	markers     []docmodel.Marker
	inHeader    bool
	uSkip       int
	skipChars   int
	pendingHigh rune
	pendingURL  string
}

func convert(data []byte) *builder {
	b := &builder{inHeader: true, uSkip: 1}
	depth := 0
	skipDepth := -1
	i := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == '{':
			b.finalizeToken()
			depth++
			if skipDepth == -1 && skipDestinations[peekDestinationName(data, i+1)] {
				skipDepth = depth
			}
			i++
		case c == '}':
			b.finalizeToken()
			if skipDepth == depth {
				skipDepth = -1
			}
			if depth > 0 {
				depth--
			}
			i++
		case c == '\\':
			i = b.handleEscape(data, i+1, skipDepth != -1)
		case c == '\r' || c == '\n':
			b.emitNewline()
			i++
		default:
			if skipDepth == -1 {
				b.emitChar(rune(c))
			}
			i++
		}
	}
	b.finalizeToken()
	return b
}

// handleEscape processes one backslash escape starting at index i (the
// byte right after '\') and returns the index to resume scanning from.
func (b *builder) handleEscape(data []byte, i int, skipping bool) int {
	if i >= len(data) {
		return i
	}
	ch := data[i]
	switch {
	case ch == '\'':
		i++
		if i+2 <= len(data) {
			if v, err := strconv.ParseUint(string(data[i:i+2]), 16, 8); err == nil && !skipping {
				b.emitChar(rune(v))
			}
			i += 2
		}
		return i
	case isAlphaByte(ch):
		start := i
		for i < len(data) && isAlphaByte(data[i]) {
			i++
		}
		name := string(data[start:i])
		neg := false
		if i < len(data) && data[i] == '-' {
			neg = true
			i++
		}
		numStart := i
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
		hasNum := i > numStart
		num := 0
		if hasNum {
			num, _ = strconv.Atoi(string(data[numStart:i]))
			if neg {
				num = -num
			}
		}
		if i < len(data) && data[i] == ' ' {
			i++
		}
		b.handleControlWord(name, num, hasNum, skipping)
		return i
	default:
		i++
		if !skipping {
			switch ch {
			case '\\', '{', '}':
				b.emitChar(rune(ch))
			case '~':
				b.emitChar(' ')
			}
		}
		return i
	}
}

func (b *builder) handleControlWord(name string, num int, hasNum, skipping bool) {
	switch name {
	case "pard":
		b.inHeader = false
	case "par", "line":
		b.emitNewline()
	case "tab":
		b.emitTab()
	case "uc":
		if hasNum && num >= 0 {
			b.uSkip = num
		}
	case "u":
		if hasNum {
			cp := num
			if cp < 0 {
				cp += 65536
			}
			if !skipping {
				b.emitUnicodeChar(rune(cp))
			}
			b.skipChars = b.uSkip
		}
	}
}

func (b *builder) suppressed() bool {
	return b.inHeader
}

func (b *builder) writeToToken(r rune) {
	if b.suppressed() {
		return
	}
	b.token.WriteRune(r)
}

// emitChar is the path for plain literal bytes and \'hh escapes: it
// honors the \u fallback-skip counter (\ucN characters following a \u
// control word are the destination's ANSI substitute and must be dropped).
func (b *builder) emitChar(r rune) {
	if b.skipChars > 0 {
		b.skipChars--
		return
	}
	b.writeToToken(r)
}

// emitUnicodeChar is the path for the \u codepoint itself, reassembling a
// surrogate pair when a high surrogate is immediately followed by a low
// one. It bypasses the fallback-skip counter: that counter governs the
// substitute text after \u, not \u's own emission.
func (b *builder) emitUnicodeChar(r rune) {
	if utf16.IsSurrogate(r) {
		if r >= 0xD800 && r <= 0xDBFF {
			if b.pendingHigh != 0 {
				b.writeToToken(b.pendingHigh)
			}
			b.pendingHigh = r
			return
		}
		if b.pendingHigh != 0 {
			combined := utf16.DecodeRune(b.pendingHigh, r)
			b.pendingHigh = 0
			if combined != unicode.ReplacementChar {
				b.writeToToken(combined)
				return
			}
		}
	}
	if b.pendingHigh != 0 {
		b.writeToToken(b.pendingHigh)
		b.pendingHigh = 0
	}
	b.writeToToken(r)
}

func (b *builder) emitNewline() {
	b.finalizeToken()
	if b.suppressed() {
		return
	}
	b.text.WriteByte('\n')
}

func (b *builder) emitTab() {
	b.finalizeToken()
	if b.suppressed() {
		return
	}
	b.text.WriteByte('\t')
}

// finalizeToken closes the current contiguous run of plain text. A token
// whose trimmed content begins "HYPERLINK " is the \fldinst field-code
// idiom: it is swallowed (never written to the visible buffer) and sets
// a pending link; the next non-empty token becomes that link's display
// text and display text of its own accord.
func (b *builder) finalizeToken() {
	tok := b.token.String()
	b.token.Reset()
	if tok == "" {
		return
	}
	if url, ok := parseHyperlinkToken(tok); ok {
		b.pendingURL = url
		return
	}
	start := textutil.DisplayLen(b.text.String())
	b.text.WriteString(tok)
	if b.pendingURL != "" {
		if display := strings.TrimSpace(tok); display != "" {
			b.markers = append(b.markers, docmodel.Marker{
				Kind: docmodel.Link, Position: start, Text: display,
				Reference: b.pendingURL, Length: uint64(textutil.DisplayLen(tok)),
			})
		}
		b.pendingURL = ""
	}
}

func parseHyperlinkToken(tok string) (string, bool) {
	trimmed := strings.TrimSpace(tok)
	const prefix = "HYPERLINK "
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
	rest = strings.Trim(rest, `"`)
	if rest == "" {
		return "", false
	}
	return rest, true
}

// peekDestinationName looks ahead from just inside an opening brace,
// across an optional "\*" ignorable-destination marker, and returns the
// control word name that follows (the group's destination), without
// advancing the real scan position.
func peekDestinationName(data []byte, pos int) string {
	i := pos
	for i < len(data) && data[i] == ' ' {
		i++
	}
	if i+1 < len(data) && data[i] == '\\' && data[i+1] == '*' {
		i += 2
		for i < len(data) && data[i] == ' ' {
			i++
		}
	}
	if i < len(data) && data[i] == '\\' {
		i++
		start := i
		for i < len(data) && isAlphaByte(data[i]) {
			i++
		}
		return string(data[start:i])
	}
	return ""
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
