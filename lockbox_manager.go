package lockbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	instance Backend
	manager  *Lockbox
	backends = make(map[string]BackendInit)
	lock     sync.RWMutex
)

// Instance returns the instance set via SetInstance. nil if not set.
func Instance() Backend {
	lock.RLock()
	defer lock.RUnlock()
	return instance
}

// SetInstance sets the singleton instance of the lockbox backend.
func SetInstance(backend Backend) error {
	lock.Lock()
	defer lock.Unlock()
	if instance == nil {
		instance = backend
		return nil
	}
	return fmt.Errorf("Lockbox instance is already"+
		" set to %v", instance.String())
}

// Manager returns the process wide Lockbox. It uses the backend set via
// SetInstance and the DefaultNamespace.
func Manager() (*Lockbox, error) {
	lock.Lock()
	defer lock.Unlock()
	if manager != nil {
		return manager, nil
	}
	if instance == nil {
		return nil, ErrNoInstance
	}
	lb, err := New(instance, Config{Namespace: DefaultNamespace()})
	if err != nil {
		return nil, err
	}
	manager = lb
	return manager, nil
}

// DefaultNamespace returns the base name of the running executable, or
// "lockbox" if it cannot be determined.
func DefaultNamespace() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return "lockbox"
	}
	return strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
}

// NewBackend returns a new instance of the Backend identified by
// the supplied name. config is a map of key value pairs which could
// be used for authenticating with the backend.
func NewBackend(
	name string,
	config map[string]interface{},
) (Backend, error) {
	lock.RLock()
	defer lock.RUnlock()

	if bInit, exists := backends[name]; exists {
		return bInit(config)
	}
	return nil, ErrNotSupported
}

// Register adds a new backend
func Register(name string, bInit BackendInit) error {
	lock.Lock()
	defer lock.Unlock()
	if _, exists := backends[name]; exists {
		return fmt.Errorf("Lockbox backend provider %v is already"+
			" registered", name)
	}
	backends[name] = bInit
	return nil
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	lock.RLock()
	defer lock.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
