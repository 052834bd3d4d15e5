// Package memory is an in-process lockbox backend. It is meant for tests and
// for programs that want lockbox semantics without a persistent store.
package memory

import (
	"context"
	"sync"

	"github.com/libopenstorage/lockbox"
)

const (
	Name = "memory"
)

type itemKey struct {
	service     string
	account     string
	accessGroup string
}

// Item is a stored item together with the attributes it was written with.
type Item struct {
	Data           []byte
	Accessibility  lockbox.Accessibility
	Synchronizable bool
}

// Store keeps items in a map. The zero value is not usable; call NewStore.
type Store struct {
	mu     sync.Mutex
	items  map[itemKey]Item
	locked bool
	calls  map[string]int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		items: make(map[itemKey]Item),
		calls: make(map[string]int),
	}
}

func New(
	config map[string]interface{},
) (lockbox.Backend, error) {
	return NewStore(), nil
}

func (s *Store) String() string {
	return Name
}

func key(q lockbox.Query) itemKey {
	return itemKey{service: q.Service, account: q.Account, accessGroup: q.AccessGroup}
}

// Lock makes every primitive fail with lockbox.ErrInteractionNotAllowed
// until Unlock is called, the way a locked device keychain behaves.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Unlock reverses Lock.
func (s *Store) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

// Calls returns how many times the named primitive ("lookup", "insert",
// "update" or "delete") was invoked.
func (s *Store) Calls(primitive string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[primitive]
}

// Item returns the stored item for q.
func (s *Store) Item(q lockbox.Query) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key(q)]
	return item, ok
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) enter(primitive string) error {
	s.calls[primitive]++
	if s.locked {
		return lockbox.ErrInteractionNotAllowed
	}
	return nil
}

func (s *Store) Lookup(_ context.Context, q lockbox.Query) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("lookup"); err != nil {
		return nil, err
	}
	item, ok := s.items[key(q)]
	if !ok {
		return nil, lockbox.ErrItemNotFound
	}
	return copyBytes(item.Data), nil
}

func (s *Store) Insert(_ context.Context, q lockbox.Query, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("insert"); err != nil {
		return err
	}
	if _, ok := s.items[key(q)]; ok {
		return lockbox.ErrDuplicateItem
	}
	s.items[key(q)] = Item{
		Data:           copyBytes(data),
		Accessibility:  q.Accessibility,
		Synchronizable: q.Synchronizable,
	}
	return nil
}

func (s *Store) Update(_ context.Context, q lockbox.Query, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("update"); err != nil {
		return err
	}
	if _, ok := s.items[key(q)]; !ok {
		return lockbox.ErrItemNotFound
	}
	s.items[key(q)] = Item{
		Data:           copyBytes(data),
		Accessibility:  q.Accessibility,
		Synchronizable: q.Synchronizable,
	}
	return nil
}

func (s *Store) Delete(_ context.Context, q lockbox.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete"); err != nil {
		return err
	}
	if _, ok := s.items[key(q)]; !ok {
		return lockbox.ErrItemNotFound
	}
	delete(s.items, key(q))
	return nil
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
