package ops

import (
	"encoding/json"
	"testing"

	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReflectsCounterIncrements(t *testing.T) {
	const name = "ops-snapshot-test"

	AppendBytesTotal.WithLabelValues(name).Add(42)
	AppendBackpressureTotal.WithLabelValues(name).Inc()
	ReadCorruptionTotal.WithLabelValues(name).Inc()

	gotJSON, err := json.Marshal(Snapshot(name))
	require.NoError(t, err)

	wantJSON, err := json.Marshal(MetricsSnapshot{
		Name: name, AppendBytesTotal: 42, BackpressureTotal: 1, ReadCorruptionTotal: 1,
	})
	require.NoError(t, err)

	var opts = jsondiff.DefaultConsoleOptions()
	diff, report := jsondiff.Compare(wantJSON, gotJSON, &opts)
	require.Equal(t, jsondiff.FullMatch, diff, report)
}

func TestDeviceInfoRoundTripsThroughJSON(t *testing.T) {
	var want = DeviceInfo{Kind: "file", Path: "/var/lib/epochlog/log.data"}

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)

	var got DeviceInfo
	require.NoError(t, json.Unmarshal(wantJSON, &got))
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)

	var opts = jsondiff.DefaultConsoleOptions()
	diff, report := jsondiff.Compare(wantJSON, gotJSON, &opts)
	require.Equal(t, jsondiff.FullMatch, diff, report)
}
