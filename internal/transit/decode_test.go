package transit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsNumbers(t *testing.T) {
	t.Parallel()

	v, err := Decode([]byte(`{"ida":{"id":9007199254740993}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), GetPath(v, []string{"ida", "id"}, nil))
	assert.Equal(t, int64(9007199254740993), *Int(GetPath(v, []string{"ida", "id"}, nil)))
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	for _, line := range []string{`{"ida":`, `not json`, `{"a":1}{"b":2}`, ``} {
		_, err := Decode([]byte(line))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr, "line %q", line)
	}
}

func TestDecodeAllowsTrailingWhitespace(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("{\"ida\":{}}\r\n"))
	require.NoError(t, err)
}

func TestFlatRowValuesFollowColumns(t *testing.T) {
	t.Parallel()

	id := int64(1)
	name := "Alameda"
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := FlatRow{ID: &id, ParaderoName: &name, Timestamp: ts}

	values := row.Values()
	require.Len(t, values, len(Columns))
	assert.Equal(t, int64(1), values[0])
	assert.Equal(t, "Alameda", values[7])
	assert.Nil(t, values[1])
	assert.Equal(t, ts, values[len(values)-1])

	m := row.Map()
	assert.Equal(t, "Alameda", m["paradero_name"])
	assert.Nil(t, m["itinerario"])
	assert.Equal(t, ts, m["timestamp"])
	assert.Len(t, ColumnNames(), 22)
}

func TestDecodeRecordRequiresObject(t *testing.T) {
	t.Parallel()

	rec, err := DecodeRecord([]byte(`{"ida":{"id":1}}`))
	require.NoError(t, err)
	assert.Contains(t, rec, "ida")

	for _, line := range []string{`[1,2]`, `"route"`, `42`, `null`} {
		_, err := DecodeRecord([]byte(line))
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr, "line %q", line)
	}
}
