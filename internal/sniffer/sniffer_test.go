package sniffer

import (
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestDecodeUTF8RoundTrip(t *testing.T) {
	tests := []string{"hello world", "héllo wörld", "日本語のテキスト", ""}
	for _, want := range tests {
		if got := Decode([]byte(want)); got != want {
			t.Errorf("Decode(%q) = %q, want identity", want, got)
		}
	}
}

func TestDecodeUTF8WithBOM(t *testing.T) {
	b := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	if got := Decode(b); got != "hello" {
		t.Errorf("Decode(BOM+hello) = %q, want %q", got, "hello")
	}
}

func TestDecodeUTF16LEWithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	encoded, err := enc.NewEncoder().String("hello")
	if err != nil {
		t.Fatal(err)
	}
	if got := Decode([]byte(encoded)); got != "hello" {
		t.Errorf("Decode(UTF16LE+BOM) = %q, want %q", got, "hello")
	}
}

func TestDecodeUTF16BEWithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	encoded, err := enc.NewEncoder().String("hello")
	if err != nil {
		t.Fatal(err)
	}
	if got := Decode([]byte(encoded)); got != "hello" {
		t.Errorf("Decode(UTF16BE+BOM) = %q, want %q", got, "hello")
	}
}

func TestDecodeWindows1252Fallback(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252; invalid as UTF-8 continuation bytes.
	b := []byte{0x93, 'h', 'i', 0x94}
	got := Decode(b)
	if got == "" {
		t.Fatal("Decode returned empty string for Windows-1252 input")
	}
	if got != "“hi”" {
		t.Errorf("Decode(windows-1252) = %q, want curly quotes around %q", got, "hi")
	}
}

func TestDecodeNullHeavyLooksLikeUTF16(t *testing.T) {
	// "ABé" encoded as UTF-16LE without a BOM: 0x41 0x00 0x42 0x00 0xE9 0x00.
	// The 0xE9 0x00 pair is not valid UTF-8, so the strict UTF-8 attempt
	// fails and the null-byte heuristic picks UTF-16LE.
	b := []byte{0x41, 0x00, 0x42, 0x00, 0xE9, 0x00}
	if got := Decode(b); got != "ABé" {
		t.Errorf("Decode(utf16-no-bom) = %q, want %q", got, "ABé")
	}
}
