package commit

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/minio/highwayhash"
)

const (
	recoveryMagic   uint32 = 0x464c4f47 // "FLOG"
	recoveryVersion uint8  = 1
	// recoveryRecordSize is the fixed on-disk size of an encoded RecoveryRecord:
	// magic(4) + version(1) + reserved(3) + begin(8) + flushedUntil(8) + checksum(32).
	recoveryRecordSize = 4 + 1 + 3 + 8 + 8 + highwayhash.Size
)

// checksumKey is a fixed, non-secret domain-separation key for the
// HighwayHash-256 checksum guarding the recovery record against torn
// writes. It need not be kept secret: its only job is detecting corruption.
var checksumKey = [highwayhash.Size]byte{
	0x65, 0x70, 0x6f, 0x63, 0x68, 0x6c, 0x6f, 0x67,
	0x2d, 0x72, 0x65, 0x63, 0x6f, 0x76, 0x65, 0x72,
	0x79, 0x2d, 0x72, 0x65, 0x63, 0x6f, 0x72, 0x64,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// RecoveryRecord is the self-describing metadata blob persisted on commit.
type RecoveryRecord struct {
	BeginAddress        int64
	FlushedUntilAddress int64
}

// ErrCorruptRecovery is returned by DecodeRecoveryRecord when the checksum
// does not match, or the blob is not recognizable at all.
var ErrCorruptRecovery = fmt.Errorf("commit: corrupt recovery record")

// Encode serializes r into its fixed binary layout: magic, version, the two
// watermark fields, and a HighwayHash-256 checksum over all of the above.
func (r RecoveryRecord) Encode() []byte {
	var buf = make([]byte, recoveryRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], recoveryMagic)
	buf[4] = recoveryVersion
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.BeginAddress))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.FlushedUntilAddress))

	var h, _ = highwayhash.New(checksumKey[:])
	h.Write(buf[0:24])
	copy(buf[24:], h.Sum(nil))
	return buf
}

// DecodeRecoveryRecord parses and validates a blob produced by Encode.
func DecodeRecoveryRecord(blob []byte) (RecoveryRecord, error) {
	if len(blob) != recoveryRecordSize {
		return RecoveryRecord{}, ErrCorruptRecovery
	}
	if binary.LittleEndian.Uint32(blob[0:4]) != recoveryMagic {
		return RecoveryRecord{}, ErrCorruptRecovery
	}
	if blob[4] != recoveryVersion {
		return RecoveryRecord{}, ErrCorruptRecovery
	}

	var h, _ = highwayhash.New(checksumKey[:])
	h.Write(blob[0:24])
	if !bytes.Equal(h.Sum(nil), blob[24:]) {
		return RecoveryRecord{}, ErrCorruptRecovery
	}

	return RecoveryRecord{
		BeginAddress:        int64(binary.LittleEndian.Uint64(blob[8:16])),
		FlushedUntilAddress: int64(binary.LittleEndian.Uint64(blob[16:24])),
	}, nil
}
