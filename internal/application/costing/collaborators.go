package costing

import (
	"context"

	"github.com/google/uuid"
)

// EstablishmentLocker serializes coordinator work per establishment. Two
// concurrent events for the same establishment would race on cost
// recomputation and on history version allocation; events for different
// establishments run in parallel.
type EstablishmentLocker interface {
	// Acquire takes the per-establishment lock, returning a release function.
	// Contention surfaces as a CONCURRENCY_ERROR domain error, which callers
	// may retry.
	Acquire(ctx context.Context, establishmentID uuid.UUID) (release func(), err error)
}

// Notifier sends fire-and-forget text alerts on job start and rejection.
// Implementations must never return delivery failures into the transaction.
type Notifier interface {
	Notify(ctx context.Context, establishmentID uuid.UUID, message string)
}

// Archiver stores the source document of a rejected import and returns a
// stable URL for the rejection record. Archive failures are logged by the
// caller, never fatal.
type Archiver interface {
	Archive(ctx context.Context, filePath string) (string, error)
}
