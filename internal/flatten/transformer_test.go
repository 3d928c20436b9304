package flatten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/transit-ingest/internal/metrics"
	"github.com/JakeFAU/transit-ingest/internal/transit"
)

func TestProcessSingleRow(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(&fixedClock{now: fixedNow}, nil)
	var rows []transit.FlatRow
	for row := range tr.Process([]byte(singleRow)) {
		rows = append(rows, row)
	}
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), *rows[0].ID)
	assert.Equal(t, "PA1", *rows[0].ParaderoCod)
	assert.Equal(t, "S1", *rows[0].ServicioCod)
	assert.Equal(t, fixedNow, rows[0].Timestamp)
}

func TestProcessSharesTimestampWithinLine(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{now: fixedNow}
	tr := NewTransformer(clock, nil)

	var first []transit.FlatRow
	for row := range tr.Process([]byte(twoRows)) {
		first = append(first, row)
	}
	require.Len(t, first, 2)
	assert.Equal(t, first[0].Timestamp, first[1].Timestamp)
	assert.Equal(t, time.UTC, first[0].Timestamp.Location())

	var second []transit.FlatRow
	for row := range tr.Process([]byte(singleRow)) {
		second = append(second, row)
	}
	require.Len(t, second, 1)
	assert.True(t, second[0].Timestamp.After(first[0].Timestamp))
	assert.Equal(t, 2, clock.calls)
}

func TestProcessMalformedLineYieldsNothing(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	clock := &fixedClock{now: fixedNow}
	tr := NewTransformer(clock, zap.New(core))

	for _, line := range []string{`{"ida":`, `[1,2,3]`, `null`} {
		count := 0
		for range tr.Process([]byte(line)) {
			count++
		}
		assert.Zero(t, count, "line %q", line)
	}
	assert.Equal(t, 3, logs.FilterMessage("skipping malformed line").Len())
	assert.Zero(t, clock.calls)
}

func TestProcessExpansionErrorKeepsPartialRows(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	tr := NewTransformer(&fixedClock{now: fixedNow}, zap.New(core))

	line := `{"ida":{"id":1,"horarios":[{}],"paraderos":[{"id":1,"servicios":[{"id":1}]},{"id":2,"servicios":"bad"}]}}`
	var rows []transit.FlatRow
	outcome := tr.process(7, []byte(line), func(row transit.FlatRow) bool {
		rows = append(rows, row)
		return true
	})
	assert.Equal(t, metrics.LineExpansionError, outcome)
	assert.Len(t, rows, 1)

	entries := logs.FilterMessage("record has unexpected shape").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ida.paraderos[1].servicios", entries[0].ContextMap()["path"])
	assert.Equal(t, int64(7), entries[0].ContextMap()["line"])
}

func TestProcessStopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(&fixedClock{now: fixedNow}, nil)
	count := 0
	for range tr.Process([]byte(twoRows)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
