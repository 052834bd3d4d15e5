// Package lockbox stores opaque byte blobs in a secret store, keyed by
// string and scoped by namespace, account and access group.
//
// The store itself is reached through a Backend, a set of four primitives
// (lookup, insert, update, delete). Every call into a Backend made by a
// Lockbox runs on a single FIFO Queue.
package lockbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotSupported returned when implementation of specific function is not supported
	ErrNotSupported = errors.New("implementation not supported")
	// ErrItemNotFound returned by a backend when no item matches the query
	ErrItemNotFound = errors.New("item not found")
	// ErrDuplicateItem returned by a backend when inserting an item that already exists
	ErrDuplicateItem = errors.New("item already exists")
	// ErrInteractionNotAllowed returned when the store is locked or otherwise unavailable
	ErrInteractionNotAllowed = errors.New("secret store is locked or interaction is not allowed")
	// ErrEmptyKey returned when an operation is attempted with an empty key
	ErrEmptyKey = errors.New("key cannot be empty")
	// ErrNoInstance returned by Manager when no backend instance was set
	ErrNoInstance = errors.New("lockbox backend instance is not set")
	// ErrQueueClosed returned when submitting work to a closed queue
	ErrQueueClosed = errors.New("lockbox queue is closed")
)

// Accessibility controls when a stored item may be read relative to the
// device lock state. The zero value is AccessibleAfterFirstUnlock.
type Accessibility int

const (
	AccessibleAfterFirstUnlock Accessibility = iota
	AccessibleWhenUnlocked
	AccessibleAlways
	AccessibleWhenPasscodeSetThisDeviceOnly
	AccessibleWhenUnlockedThisDeviceOnly
	AccessibleAfterFirstUnlockThisDeviceOnly
	AccessibleAlwaysThisDeviceOnly
)

var accessibilityNames = map[Accessibility]string{
	AccessibleAfterFirstUnlock:               "after_first_unlock",
	AccessibleWhenUnlocked:                   "when_unlocked",
	AccessibleAlways:                         "always",
	AccessibleWhenPasscodeSetThisDeviceOnly:  "when_passcode_set_this_device_only",
	AccessibleWhenUnlockedThisDeviceOnly:     "when_unlocked_this_device_only",
	AccessibleAfterFirstUnlockThisDeviceOnly: "after_first_unlock_this_device_only",
	AccessibleAlwaysThisDeviceOnly:           "always_this_device_only",
}

func (a Accessibility) String() string {
	if name, ok := accessibilityNames[a]; ok {
		return name
	}
	return fmt.Sprintf("accessibility(%d)", int(a))
}

// ParseAccessibility returns the Accessibility named by s. An empty string
// yields the default.
func ParseAccessibility(s string) (Accessibility, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AccessibleAfterFirstUnlock, nil
	}
	for a, name := range accessibilityNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown accessibility %q", s)
}

// Query identifies one item in a backend. Service, Account and AccessGroup
// form the identity; Accessibility and Synchronizable are applied on write.
type Query struct {
	Service        string
	Account        string
	AccessGroup    string
	Accessibility  Accessibility
	Synchronizable bool
}

// Path returns a canonical slash separated identity for backends that
// address items by path. Each segment is path-escaped so that separators in
// the caller's strings cannot collide with another identity, and "." or ".."
// never reach a path as a relative segment.
func (q Query) Path() string {
	return pathSegment(q.AccessGroup) + "/" + pathSegment(q.Service) + "/" + pathSegment(q.Account)
}

func pathSegment(s string) string {
	if s == "" {
		return "_"
	}
	switch s {
	case "_":
		return "%5F"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

// Record is the envelope persisted by backends that keep item attributes
// next to the data.
type Record struct {
	Service        string `json:"service"`
	Account        string `json:"account,omitempty"`
	AccessGroup    string `json:"access_group,omitempty"`
	Accessibility  string `json:"accessibility"`
	Synchronizable bool   `json:"synchronizable,omitempty"`
	Data           []byte `json:"data"`
}

// NewRecord builds the Record persisted for q holding data.
func NewRecord(q Query, data []byte) *Record {
	if data == nil {
		data = []byte{}
	}
	return &Record{
		Service:        q.Service,
		Account:        q.Account,
		AccessGroup:    q.AccessGroup,
		Accessibility:  q.Accessibility.String(),
		Synchronizable: q.Synchronizable,
		Data:           data,
	}
}

// Backend is implemented by secret stores. Implementations report a missing
// item with ErrItemNotFound, an insert over an existing item with
// ErrDuplicateItem and a locked store with ErrInteractionNotAllowed.
type Backend interface {
	// String representation of the backend
	String() string

	// Lookup returns the data stored for q.
	Lookup(ctx context.Context, q Query) ([]byte, error)

	// Insert stores data for q, which must not exist yet.
	Insert(ctx context.Context, q Query, data []byte) error

	// Update replaces the data stored for q, which must exist.
	Update(ctx context.Context, q Query, data []byte) error

	// Delete removes the item stored for q.
	Delete(ctx context.Context, q Query) error
}

type BackendInit func(
	config map[string]interface{},
) (Backend, error)

// CacheResult is the outcome of Lockbox.TestCache.
type CacheResult int

const (
	// CacheUnknown means the key has not been read or written through this lockbox.
	CacheUnknown CacheResult = iota
	// CacheAbsent means the key is known to hold no item.
	CacheAbsent
	// CachePresent means the key is known to hold an item.
	CachePresent
)

func (c CacheResult) String() string {
	switch c {
	case CacheAbsent:
		return "absent"
	case CachePresent:
		return "present"
	default:
		return "unknown"
	}
}
