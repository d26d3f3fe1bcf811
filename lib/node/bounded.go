package node

import (
	"context"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
	"golang.org/x/sync/semaphore"
)

// BoundedStore limits the number of requests running concurrently against a
// store. A node gives one BoundedStore (around its Service) to every entry
// point clients reach it through, so the limit holds for all of them together.
//
// Requests forwarded by another node must not take a slot: two saturated
// nodes forwarding to each other would wait on each other forever. They are
// served through Unbounded.
type BoundedStore struct {
	target store.IStore
	slots  *semaphore.Weighted
}

// NewBoundedStore wraps target, at most workers calls run at the same time (at least 1)
func NewBoundedStore(target store.IStore, workers int) *BoundedStore {
	return &BoundedStore{
		target: target,
		slots:  semaphore.NewWeighted(int64(max(1, workers))),
	}
}

// Unbounded returns the wrapped store without the limit
func (b *BoundedStore) Unbounded() store.IStore {
	return b.target
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (b *BoundedStore) Set(key string, value envelope.Envelope) error {
	if err := b.acquire(); err != nil {
		return err
	}
	defer b.slots.Release(1)
	return b.target.Set(key, value)
}

func (b *BoundedStore) Get(key string) (envelope.Envelope, bool, error) {
	if err := b.acquire(); err != nil {
		return envelope.Envelope{}, false, err
	}
	defer b.slots.Release(1)
	return b.target.Get(key)
}

func (b *BoundedStore) Remove(key string) (bool, error) {
	if err := b.acquire(); err != nil {
		return false, err
	}
	defer b.slots.Release(1)
	return b.target.Remove(key)
}

func (b *BoundedStore) acquire() error {
	if err := b.slots.Acquire(context.Background(), 1); err != nil {
		return store.NewError(store.RetCInternalError, err.Error())
	}
	return nil
}
