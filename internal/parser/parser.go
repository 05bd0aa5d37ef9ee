// Package parser defines the contract every format parser implements: a
// name, the extensions it claims, the capability flags it declares, and a
// parse operation from a ParserContext to a docmodel.Document.
package parser

import (
	"errors"
	"fmt"

	"github.com/trypsynth/paperback-core/internal/docmodel"
)

// Flag is a capability bit a format parser declares support for. The
// session layer (internal/session) uses it to decide whether a navigation
// target is meaningful for a given document.
type Flag uint8

const (
	SupportsSections Flag = 1 << iota
	SupportsTOC
	SupportsPages
	SupportsLists
)

// Has reports whether f includes all bits set in other.
func (f Flag) Has(other Flag) bool { return f&other == other }

// Context carries everything a parser needs to produce a Document.
type Context struct {
	FilePath        string
	Password        string // PDF only; empty if not supplied
	ForcedExtension string // overrides extension-based registry dispatch; not consulted by the parser itself
}

// Kind classifies the cause of a parse failure, letting callers branch
// without string-matching error text.
type Kind int

const (
	KindIO Kind = iota
	KindDecode
	KindAuth
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindAuth:
		return "auth"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the typed error every parser returns on failure.
type Error struct {
	Kind   Kind
	Format string // parser name, e.g. "epub"
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Format, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError wraps cause in an *Error tagged with kind and the parser's name.
func NewError(format string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Format: format, Cause: cause}
}

// ErrPasswordRequired is returned by a parser (currently only PDF) when the
// document is encrypted and no password, or the wrong password, was
// supplied. The CLI's openDocument renders this at the outer boundary (via
// RenderOpenError) by prefixing
// the user-facing message with PasswordRequiredPrefix, per spec.md §9's
// error-as-return contract; parsers themselves never touch the prefix.
var ErrPasswordRequired = errors.New("password required")

// PasswordRequiredPrefix is the well-known sentinel prefix the outermost
// caller (the CLI's openDocument, via RenderOpenError) applies to the
// rendered error message when the
// cause chain includes ErrPasswordRequired, so a UI layer can detect it
// without importing this package's error types.
const PasswordRequiredPrefix = "[password_required]"

// RenderOpenError renders err for display to a caller that only sees
// strings (the outermost boundary spec.md §9 describes), prefixing
// PasswordRequiredPrefix when err's cause chain includes
// ErrPasswordRequired.
func RenderOpenError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrPasswordRequired) {
		return PasswordRequiredPrefix + " " + err.Error()
	}
	return err.Error()
}

// Parser is the contract every format parser implements.
type Parser interface {
	Name() string
	Extensions() []string // lowercase, no leading dot
	SupportedFlags() Flag
	Parse(ctx Context) (*docmodel.Document, error)
}
