package lstore

import (
	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// LocalStore is an in-memory store.IStore backed by a concurrent map.
// All methods are safe for concurrent use.
type LocalStore struct {
	data *xsync.MapOf[string, envelope.Envelope]
}

// NewLocalStore creates a new local store instance.
// The store lives in memory for the lifetime of the process. Each node owns
// exactly one instance holding the keys of its partition.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		data: xsync.NewMapOf[string, envelope.Envelope](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *LocalStore) Set(key string, value envelope.Envelope) error {
	if !value.IsValid() {
		return store.NewError(store.RetCInvalidValue, "value has no variant set or its text is not valid UTF-8")
	}
	s.data.Store(key, value)
	return nil
}

func (s *LocalStore) Get(key string) (envelope.Envelope, bool, error) {
	val, ok := s.data.Load(key)
	return val, ok, nil
}

func (s *LocalStore) Remove(key string) (bool, error) {
	_, existed := s.data.LoadAndDelete(key)
	return existed, nil
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Size returns the number of entries currently stored
func (s *LocalStore) Size() int {
	return s.data.Size()
}
