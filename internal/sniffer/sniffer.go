// Package sniffer decodes arbitrary input bytes to UTF-8, recognizing BOMs
// and falling back to a handful of heuristics for legacy-encoded sources
// that carry no BOM at all.
package sniffer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

var (
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts raw bytes to a UTF-8 string, decoding losslessly wherever
// possible and falling back to lossy replacement only as a last resort.
//
// BOMs are checked in order of specificity (UTF-32 before UTF-16, since the
// UTF-16LE BOM is a strict prefix of the UTF-32LE one). Without a BOM,
// strict UTF-8 is tried first; failing that, a null-byte density heuristic
// guesses UTF-16; failing that, Windows-1252 is tried provided it yields at
// least one printable, non-control character; the final fallback is lossy
// UTF-8.
func Decode(b []byte) string {
	switch {
	case bytes.HasPrefix(b, bomUTF32LE):
		return decodeWith(utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), b[len(bomUTF32LE):])
	case bytes.HasPrefix(b, bomUTF32BE):
		return decodeWith(utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), b[len(bomUTF32BE):])
	case bytes.HasPrefix(b, bomUTF8):
		return string(b[len(bomUTF8):])
	case bytes.HasPrefix(b, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), b[len(bomUTF16LE):])
	case bytes.HasPrefix(b, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), b[len(bomUTF16BE):])
	}

	if utf8.Valid(b) {
		return string(b)
	}

	if looksLikeUTF16(b) {
		if s, ok := tryDecode(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), b); ok {
			return s
		}
		if s, ok := tryDecode(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), b); ok {
			return s
		}
	}

	if s, ok := tryDecode(charmap.Windows1252, b); ok && hasPrintable(s) {
		return s
	}

	return strings.ToValidUTF8(string(b), "�")
}

// decodeWith decodes b with enc, returning the original bytes reinterpreted
// as UTF-8 if the transcoder itself fails (callers of decodeWith have
// already committed to this encoding via an explicit BOM, so there is no
// better fallback left to try).
func decodeWith(enc encoding.Encoding, b []byte) string {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// tryDecode decodes b with enc, reporting failure instead of masking it so
// callers can fall through to the next heuristic.
func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// looksLikeUTF16 applies the spec's null-byte density heuristic: a text
// that is really UTF-16 will have roughly one null byte for every two-byte
// code unit covering the Basic Latin/Latin-1 range, so the null count
// should be at least half the total byte-pair count.
func looksLikeUTF16(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	pairs := len(b) / 2
	nulls := 0
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 || b[i+1] == 0 {
			nulls++
		}
	}
	return nulls >= pairs/2
}

func hasPrintable(s string) bool {
	for _, r := range s {
		if r >= 0x20 && r != 0x7F {
			return true
		}
	}
	return false
}
