package research

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrParse matches every *ParseFailure.
var ErrParse = eris.New("research: unparseable model output")

// ParseFailure reports model output that could not be read as structured
// data, even after recovery.
type ParseFailure struct {
	Raw   string
	Cause error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("research: parse failure: %v", e.Cause)
}

func (e *ParseFailure) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseFailure) Is(target error) bool { return target == ErrParse }

// ParseStructured decodes raw model output into T. When the text is not
// valid JSON as a whole, one recovery is attempted: the first balanced
// [...] (for slices) or {...} (for structs and maps) substring.
func ParseStructured[T any](raw string) (T, error) {
	var zero T
	text := strings.TrimSpace(raw)

	var direct T
	firstErr := json.Unmarshal([]byte(text), &direct)
	if firstErr == nil {
		return direct, nil
	}

	openCh, closeCh := delimitersFor[T]()
	if candidate, ok := firstBalanced(text, openCh, closeCh); ok {
		var recovered T
		if err := json.Unmarshal([]byte(candidate), &recovered); err == nil {
			return recovered, nil
		}
	}
	return zero, &ParseFailure{Raw: raw, Cause: firstErr}
}

func delimitersFor[T any]() (byte, byte) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return '[', ']'
	default:
		return '{', '}'
	}
}

// firstBalanced returns the first substring that opens with openCh and closes
// at the matching closeCh, skipping delimiters inside JSON strings.
func firstBalanced(text string, openCh, closeCh byte) (string, bool) {
	start := strings.IndexByte(text, openCh)
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case openCh:
				depth++
			case closeCh:
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], openCh)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
