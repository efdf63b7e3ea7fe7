package checkpoint

import (
	"errors"
	"fmt"
)

// ErrPersistence is the root of every load/save failure.
var ErrPersistence = errors.New("checkpoint: persistence failure")

var (
	// ErrMissingSlot indicates a required W<i> or b<i> file is absent.
	ErrMissingSlot = fmt.Errorf("%w: missing slot", ErrPersistence)
	// ErrMalformed indicates a file whose content cannot be parsed or whose
	// shapes do not form a valid network.
	ErrMalformed = fmt.Errorf("%w: malformed data", ErrPersistence)
	// ErrTruncated indicates a matrix file with fewer values than its header announces.
	ErrTruncated = fmt.Errorf("%w: truncated data", ErrPersistence)
	// ErrNotCheckpoint indicates a non-empty destination that holds neither
	// W1 nor a manifest and therefore is not replaced.
	ErrNotCheckpoint = fmt.Errorf("%w: destination is not a checkpoint", ErrPersistence)
)
