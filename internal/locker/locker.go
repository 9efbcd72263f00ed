// Package locker provides per-client mutual exclusion for the transaction
// path. The database row lock is the authority on correctness; the locker
// keeps same-client requests from piling up on database connections, and the
// Redis implementation extends that across service instances.
package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// A Locker grants exclusive access to a single client's ledger row. Lock
// blocks until the lock is held or ctx is done; the returned function
// releases it.
type Locker interface {
	Lock(ctx context.Context, clientID int) (unlock func(), err error)
}

// Local serializes per-client access inside a single process.
type Local struct {
	mu      sync.Mutex
	clients map[int]*sync.Mutex
}

func NewLocal() *Local {
	return &Local{clients: make(map[int]*sync.Mutex)}
}

func (l *Local) Lock(_ context.Context, clientID int) (func(), error) {
	l.mu.Lock()
	m, ok := l.clients[clientID]
	if !ok {
		m = &sync.Mutex{}
		l.clients[clientID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// Redsync serializes per-client access across service instances using a
// Redis lock per client id.
type Redsync struct {
	rs *redsync.Redsync
}

func NewRedsync(client redis.UniversalClient) *Redsync {
	return &Redsync{rs: redsync.New(goredis.NewPool(client))}
}

func (r *Redsync) Lock(ctx context.Context, clientID int) (func(), error) {
	// The critical section is one short database transaction, so the
	// expiry only has to survive a slow commit.
	m := r.rs.NewMutex(keyFor(clientID),
		redsync.WithExpiry(2*time.Second),
		redsync.WithTries(64),
		redsync.WithRetryDelay(10*time.Millisecond),
	)

	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquiring lock for client %d: %w", clientID, err)
	}

	unlock := func() {
		// Unlock past ctx cancellation: a held lock must always be
		// released or followers wait out the full expiry.
		m.Unlock()
	}

	return unlock, nil
}

func keyFor(clientID int) string {
	return fmt.Sprintf("ledger:client:%d", clientID)
}
