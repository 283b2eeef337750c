package lock

import (
	"context"
	"errors"
	"sync"

	"github.com/newthinker/augur/internal/core"
)

// Mutex is an in-process lock for a single long-running daemon.
type Mutex struct {
	mu sync.Mutex
}

// NewMutex creates an in-process lock
func NewMutex() *Mutex {
	return &Mutex{}
}

// Acquire takes the mutex without waiting.
func (m *Mutex) Acquire(ctx context.Context) (func(), error) {
	if !m.mu.TryLock() {
		return nil, core.WrapError(core.ErrLedgerLocked, errors.New("another operation is in progress"))
	}
	return m.mu.Unlock, nil
}
