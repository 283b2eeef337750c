// Package lock provides single-writer locks around ledger transactions.
package lock

import "context"

// Locker grants exclusive access until the returned release func is called.
// A held lock yields core.ErrLedgerLocked.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}
