package lockbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config holds the construction parameters of a Lockbox.
type Config struct {
	// Namespace is prepended to every key as "<namespace>.<key>". Empty means
	// keys are used as given.
	Namespace string
	// Accessibility is applied to every item written.
	Accessibility Accessibility
	// Account optionally scopes items to an account name.
	Account string
	// AccessGroup optionally shares items across applications.
	AccessGroup string
	// Synchronizable marks items for cloud synchronization.
	Synchronizable bool
	// Queue serializes backend access. nil means DefaultQueue().
	Queue *Queue
	// Logger receives operation logs. nil means logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// Lockbox reads and writes byte blobs through a Backend. It is safe for
// concurrent use. Lockboxes sharing a backend and a queue share one cache, so
// a write through one is seen by the others.
type Lockbox struct {
	backend Backend
	cfg     Config
	queue   *Queue
	log     logrus.FieldLogger
	cache   *itemCache
}

// New returns a Lockbox storing items in backend.
func New(backend Backend, cfg Config) (*Lockbox, error) {
	if backend == nil {
		return nil, errors.New("lockbox backend cannot be nil")
	}
	if _, ok := accessibilityNames[cfg.Accessibility]; !ok {
		return nil, fmt.Errorf("unknown accessibility %d", int(cfg.Accessibility))
	}
	queue := cfg.Queue
	if queue == nil {
		queue = DefaultQueue()
	}
	var logger logrus.FieldLogger = logrus.StandardLogger()
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &Lockbox{
		backend: backend,
		cfg:     cfg,
		queue:   queue,
		log: logger.WithFields(logrus.Fields{
			"backend":   backend.String(),
			"namespace": cfg.Namespace,
		}),
		cache: queue.cacheFor(backend),
	}, nil
}

// Namespace returns the prefix applied to every key.
func (l *Lockbox) Namespace() string { return l.cfg.Namespace }

// Accessibility returns the accessibility applied to written items.
func (l *Lockbox) Accessibility() Accessibility { return l.cfg.Accessibility }

// Account returns the account items are scoped to, or "".
func (l *Lockbox) Account() string { return l.cfg.Account }

// AccessGroup returns the access group items are shared in, or "".
func (l *Lockbox) AccessGroup() string { return l.cfg.AccessGroup }

// Synchronizable reports whether written items are marked for cloud sync.
func (l *Lockbox) Synchronizable() bool { return l.cfg.Synchronizable }

// Backend returns the backend items are stored in.
func (l *Lockbox) Backend() Backend { return l.backend }

func (l *Lockbox) service(key string) string {
	if l.cfg.Namespace == "" {
		return key
	}
	return l.cfg.Namespace + "." + key
}

func (l *Lockbox) query(key string) Query {
	return Query{
		Service:        l.service(key),
		Account:        l.cfg.Account,
		AccessGroup:    l.cfg.AccessGroup,
		Accessibility:  l.cfg.Accessibility,
		Synchronizable: l.cfg.Synchronizable,
	}
}

// Get returns the data stored on key. It returns nil and no error if no item
// exists.
func (l *Lockbox) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	q := l.query(key)
	if entry, ok := l.cache.get(q); ok {
		return clone(entry.data), nil
	}

	var (
		data []byte
		err  error
	)
	if qErr := l.queue.Do(ctx, func() {
		data, err = l.lookup(ctx, q)
	}); qErr != nil {
		return nil, fmt.Errorf("lockbox: get %q: %w", key, qErr)
	}
	if err != nil {
		l.log.WithField("key", key).WithError(err).Error("Failed to read item")
		return nil, fmt.Errorf("lockbox: get %q: %w", key, err)
	}
	return clone(data), nil
}

// lookup runs on the queue.
func (l *Lockbox) lookup(ctx context.Context, q Query) ([]byte, error) {
	if entry, ok := l.cache.get(q); ok {
		return entry.data, nil
	}
	data, err := l.backend.Lookup(ctx, q)
	if errors.Is(err, ErrItemNotFound) {
		l.cache.put(q, cacheEntry{})
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	l.cache.put(q, cacheEntry{data: clone(data), present: true})
	return data, nil
}

// Set stores data on key, inserting the item if it does not exist and
// updating it otherwise. A nil data deletes the item.
func (l *Lockbox) Set(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	q := l.query(key)
	data = clone(data)

	var err error
	if qErr := l.queue.Do(ctx, func() {
		err = l.write(ctx, q, data)
	}); qErr != nil {
		return fmt.Errorf("lockbox: set %q: %w", key, qErr)
	}
	log := l.log.WithFields(logrus.Fields{"key": key, "delete": data == nil})
	if err != nil {
		log.WithError(err).Error("Failed to write item")
		return fmt.Errorf("lockbox: set %q: %w", key, err)
	}
	log.Debug("Wrote item")
	return nil
}

// Delete removes the item stored on key. Deleting a missing item succeeds.
func (l *Lockbox) Delete(ctx context.Context, key string) error {
	return l.Set(ctx, key, nil)
}

// write runs on the queue.
func (l *Lockbox) write(ctx context.Context, q Query, data []byte) error {
	_, err := l.backend.Lookup(ctx, q)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		l.cache.forget(q)
		return err
	}

	switch {
	case data == nil && !exists:
		err = nil
	case data == nil:
		err = l.backend.Delete(ctx, q)
		if errors.Is(err, ErrItemNotFound) {
			err = nil
		}
	case exists:
		err = l.backend.Update(ctx, q, data)
	default:
		err = l.backend.Insert(ctx, q, data)
	}
	if err != nil {
		l.cache.forget(q)
		return err
	}

	if data == nil {
		l.cache.put(q, cacheEntry{})
	} else {
		l.cache.put(q, cacheEntry{data: clone(data), present: true})
	}
	return nil
}

// TestCache reports what was last observed for key through this lockbox's
// queue and backend, without touching either.
func (l *Lockbox) TestCache(key string) CacheResult {
	entry, ok := l.cache.get(l.query(key))
	switch {
	case !ok:
		return CacheUnknown
	case entry.present:
		return CachePresent
	default:
		return CacheAbsent
	}
}

// Flush waits until every operation queued before the call has completed.
func (l *Lockbox) Flush(ctx context.Context) error {
	return l.queue.Barrier(ctx)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
