package log

import (
	"fmt"

	"github.com/estuary/epochlog/go/commit"
)

// ErrOutOfRange is returned by ReadAsync when the requested address lies
// below BeginAddress or at/above CommittedUntilAddress.
var ErrOutOfRange = fmt.Errorf("log: address out of range")

// ErrCorruptRecord is returned when a read's length prefix is negative or
// exceeds the page size. A recovery record that fails its checksum is not
// reported with it: Open logs that case and starts a fresh log. The log
// never attempts automatic repair.
var ErrCorruptRecord = fmt.Errorf("log: corrupt record")

// ErrLogDisposed is returned by any operation issued after Dispose, and is
// the terminal error every pending commit future resolves with. It is the
// same value as commit.ErrDisposed.
var ErrLogDisposed = commit.ErrDisposed
