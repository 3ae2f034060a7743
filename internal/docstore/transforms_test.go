package docstore_test

import (
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/stretchr/testify/require"
)

func TestApply_ResolvesServerTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	out, err := docstore.Apply(nil, docstore.Fields{
		"startTime": docstore.ServerTimestamp,
		"nested": map[string]any{
			"at": docstore.ServerTimestamp,
		},
	}, now)
	require.NoError(t, err)
	require.Equal(t, now, out["startTime"])
	require.Equal(t, now, out["nested"].(map[string]any)["at"])
}

func TestApply_MergesWithoutMutatingBase(t *testing.T) {
	base := docstore.Fields{"a": 1.0, "b": "x"}

	out, err := docstore.Apply(base, docstore.Fields{"b": "y", "c": true}, time.Now())
	require.NoError(t, err)
	require.Equal(t, docstore.Fields{"a": 1.0, "b": "y", "c": true}, out)
	require.Equal(t, "x", base["b"])
}

func TestApply_ArrayAppend(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	out, err := docstore.Apply(nil, docstore.Fields{
		"events": docstore.ArrayAppend(map[string]any{"type": "pause", "timestamp": docstore.ServerTimestamp}),
	}, now)
	require.NoError(t, err)
	require.Len(t, out["events"], 1)

	out, err = docstore.Apply(out, docstore.Fields{
		"events": docstore.ArrayAppend(map[string]any{"type": "resume"}),
	}, now)
	require.NoError(t, err)
	events := out["events"].([]any)
	require.Len(t, events, 2)
	require.Equal(t, now, events[0].(map[string]any)["timestamp"])
	require.Equal(t, "resume", events[1].(map[string]any)["type"])
}

func TestApply_ArrayAppendOnScalarFails(t *testing.T) {
	_, err := docstore.Apply(docstore.Fields{"events": "nope"}, docstore.Fields{
		"events": docstore.ArrayAppend("x"),
	}, time.Now())
	require.ErrorIs(t, err, docstore.ErrInvalidInput)
}

func TestApply_RejectsBadFieldName(t *testing.T) {
	_, err := docstore.Apply(nil, docstore.Fields{"bad-field'": 1}, time.Now())
	require.ErrorIs(t, err, docstore.ErrInvalidInput)
}

func TestSnapshot_DataToMissing(t *testing.T) {
	var v map[string]any
	err := docstore.Snapshot{}.DataTo(&v)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}
