package guard

import (
	"context"
	"errors"
)

// ErrAlreadyImported is returned when the same export was queued recently.
var ErrAlreadyImported = errors.New("export already imported")

// ImportGuard stops the same export from being queued twice within a window.
type ImportGuard interface {
	// Acquire claims checksum; it returns ErrAlreadyImported if it is taken.
	Acquire(ctx context.Context, checksum string) error
	// Release gives a claim back, e.g. when storing the batch failed.
	Release(ctx context.Context, checksum string) error
}
