package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// MemoryLocker is a process-local establishment lock for single-instance
// deployments and tests. It does not share state across processes.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]struct{})}
}

// Acquire takes the per-establishment lock, failing fast on contention.
func (l *MemoryLocker) Acquire(_ context.Context, establishmentID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[establishmentID]; taken {
		return nil, shared.NewConcurrencyError("Another event is being processed for this establishment")
	}
	l.held[establishmentID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, establishmentID)
			l.mu.Unlock()
		})
	}
	return release, nil
}
