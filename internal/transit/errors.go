package transit

import (
	"fmt"
)

// ParseError reports an input line that is not a single valid JSON document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode record: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExpansionError reports a record whose structure does not match the route shape.
// Rows yielded before the error are not retracted.
type ExpansionError struct {
	Path string
	Want string
	Got  string
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("unexpected shape at %s: want %s, got %s", e.Path, e.Want, e.Got)
}

func shapeError(path, want string, got any) *ExpansionError {
	return &ExpansionError{Path: path, Want: want, Got: kindOf(got)}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
