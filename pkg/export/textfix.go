package export

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// ErrUndecodableText is matched by every *TextDecodeError.
var ErrUndecodableText = errors.New("export: undecodable text")

// TextDecodeError reports text that could not be repaired into valid UTF-8.
type TextDecodeError struct {
	Input string
	Err   error
}

func (e *TextDecodeError) Error() string {
	if e == nil {
		return ""
	}
	return "export: cannot repair text " + truncateForError(e.Input) + ": " + e.Err.Error()
}

func (e *TextDecodeError) Unwrap() error { return e.Err }

func (e *TextDecodeError) Is(target error) bool { return target == ErrUndecodableText }

// Repair undoes the export's mis-encoding: every UTF-8 byte was written out as its
// own Latin-1 code point. Repair maps the code points back to bytes and decodes
// the result as UTF-8. ASCII input is returned unchanged.
func Repair(s string) (string, error) {
	if isASCII(s) {
		return s, nil
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return "", &TextDecodeError{Input: s, Err: errors.Wrap(err, "not a latin-1 byte sequence")}
	}
	if !utf8.ValidString(raw) {
		return "", &TextDecodeError{Input: s, Err: errors.New("re-encoded bytes are not valid utf-8")}
	}
	return raw, nil
}

// RepairPtr repairs an optional string.
func RepairPtr(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	out, err := Repair(*s)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func truncateForError(s string) string {
	const limit = 32
	if utf8.RuneCountInString(s) <= limit {
		return `"` + s + `"`
	}
	runes := []rune(s)
	return `"` + string(runes[:limit]) + `..."`
}
