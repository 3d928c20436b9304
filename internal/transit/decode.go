package transit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decode parses one NDJSON line into an untyped tree. Numbers are kept as
// json.Number so integer columns do not lose precision.
func Decode(line []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Err: err}
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after JSON value")
		}
		return nil, &ParseError{Err: err}
	}
	return v, nil
}

// DecodeRecord decodes a line that must hold a JSON object.
func DecodeRecord(line []byte) (map[string]any, error) {
	v, err := Decode(line)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("top-level value is %s, not an object", kindOf(v))}
	}
	return obj, nil
}
