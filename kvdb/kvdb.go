package kvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	kv "github.com/portworx/kvdb"

	"github.com/libopenstorage/lockbox"
)

const (
	Name    = "kvdb"
	KvdbKey = "KVDB"
	// KvdbBasePathKey optionally overrides the key prefix items are stored under.
	KvdbBasePathKey = "KVDB_BASE_PATH"
	// DefaultBasePath is the key prefix items are stored under.
	DefaultBasePath = "lockbox/"
)

var (
	ErrKvdbNotSet          = errors.New("KVDB Key not set")
	ErrInvalidKvdbProvided = errors.New("Invalid kvdb provided")
)

type kvdbBackend struct {
	client   kv.Kvdb
	basePath string
}

func New(
	config map[string]interface{},
) (lockbox.Backend, error) {
	kvdbIntf, exists := config[KvdbKey]
	if !exists {
		return nil, ErrKvdbNotSet
	}
	kvClient, ok := kvdbIntf.(kv.Kvdb)
	if !ok {
		return nil, ErrInvalidKvdbProvided
	}
	basePath := getParam(config, KvdbBasePathKey)
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &kvdbBackend{
		client:   kvClient,
		basePath: basePath,
	}, nil
}

func (v *kvdbBackend) String() string {
	return Name
}

func (v *kvdbBackend) key(q lockbox.Query) string {
	return v.basePath + q.Path()
}

func (v *kvdbBackend) Lookup(_ context.Context, q lockbox.Query) ([]byte, error) {
	kvp, err := v.client.Get(v.key(q))
	if err == kv.ErrNotFound {
		return nil, lockbox.ErrItemNotFound
	} else if err != nil {
		return nil, err
	}
	record := &lockbox.Record{}
	if err := json.Unmarshal(kvp.Value, record); err != nil {
		return nil, fmt.Errorf("Unable to unmarshal record %v: %v", kvp.Key, err)
	}
	return record.Data, nil
}

func (v *kvdbBackend) Insert(_ context.Context, q lockbox.Query, data []byte) error {
	value, err := json.Marshal(lockbox.NewRecord(q, data))
	if err != nil {
		return err
	}
	_, err = v.client.Create(v.key(q), value, 0)
	if err == kv.ErrExist {
		return lockbox.ErrDuplicateItem
	}
	return err
}

func (v *kvdbBackend) Update(_ context.Context, q lockbox.Query, data []byte) error {
	value, err := json.Marshal(lockbox.NewRecord(q, data))
	if err != nil {
		return err
	}
	_, err = v.client.Update(v.key(q), value, 0)
	if err == kv.ErrNotFound {
		return lockbox.ErrItemNotFound
	}
	return err
}

func (v *kvdbBackend) Delete(_ context.Context, q lockbox.Query) error {
	_, err := v.client.Delete(v.key(q))
	if err == kv.ErrNotFound {
		return lockbox.ErrItemNotFound
	}
	return err
}

func getParam(config map[string]interface{}, name string) string {
	if v, exists := config[name]; exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return os.Getenv(name)
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
