// Package store provides the durable bucket/asset store behind the
// timeline.Store contract, with interchangeable sqlite and postgres drivers.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

// Store is a closeable timeline.Store.
type Store interface {
	timeline.Store
	Close() error
}

// Open connects to the configured database. For sqlite, dsn is the path to
// the database file; for postgres it is a connection string.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// notifier pulses subscribers after bucket-row writes. Each subscriber
// channel is buffered with one pending pulse; pulses coalesce.
type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func (n *notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[chan struct{}]struct{})
	}
	ch := make(chan struct{}, 1)
	n.subs[ch] = struct{}{}

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (n *notifier) pulse() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
