package log

// Entry is a single payload handed to an append call.
type Entry = []byte

// EntryView is a read-only payload the log does not retain past the call it
// is passed to: the bytes are copied into page memory before the call
// returns, so the caller may reuse or release the backing array immediately
// afterward.
type EntryView = []byte

// align4 rounds n up to the next multiple of 4.
func align4(n int) int { return (n + 3) &^ 3 }

// frameLen is the on-disk size of a record holding a payload of length n:
// a 4-byte little-endian length prefix followed by the payload padded to a
// 4-byte multiple.
func frameLen(n int) int { return 4 + align4(n) }

func batchLen(payloads [][]byte) int {
	var total int
	for _, p := range payloads {
		total += frameLen(len(p))
	}
	return total
}
