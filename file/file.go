// Package file stores each item as a JSON record in its own file below a
// root directory. The directory layout follows lockbox.Query.Path.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libopenstorage/lockbox"
)

const (
	Name = "file"
	// FileSecretsPathKey is the root directory of the store.
	FileSecretsPathKey = "FILE_SECRETS_PATH"

	dirMode  = 0700
	fileMode = 0600
	tmpExt   = ".tmp"
)

type fileBox struct {
	root string
}

// New returns a Backend rooted at FILE_SECRETS_PATH, or ~/.lockbox/secrets.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	root := getParam(boxConfig, FileSecretsPathKey)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%s not set and no home directory: %v", FileSecretsPathKey, err)
		}
		root = filepath.Join(home, ".lockbox", "secrets")
	}
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, convertErr(err)
	}
	return &fileBox{root: root}, nil
}

func (f *fileBox) String() string {
	return Name
}

func (f *fileBox) path(q lockbox.Query) string {
	return filepath.Join(f.root, filepath.FromSlash(q.Path()))
}

func (f *fileBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	raw, err := os.ReadFile(f.path(q))
	if err != nil {
		return nil, convertErr(err)
	}
	record := &lockbox.Record{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("%s is not a lockbox record: %v", f.path(q), err)
	}
	if record.Data == nil {
		return []byte{}, nil
	}
	return record.Data, nil
}

func (f *fileBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	raw, err := json.Marshal(lockbox.NewRecord(q, data))
	if err != nil {
		return err
	}
	path := f.path(q)
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return convertErr(err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return convertErr(err)
	}
	if _, err := file.Write(raw); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

func (f *fileBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	path := f.path(q)
	if _, err := os.Stat(path); err != nil {
		return convertErr(err)
	}
	raw, err := json.Marshal(lockbox.NewRecord(q, data))
	if err != nil {
		return err
	}
	// Write a sibling and rename it so readers never see a partial record.
	tmp := path + tmpExt
	if err := os.WriteFile(tmp, raw, fileMode); err != nil {
		return convertErr(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return convertErr(err)
	}
	return nil
}

func (f *fileBox) Delete(ctx context.Context, q lockbox.Query) error {
	path := f.path(q)
	if err := os.Remove(path); err != nil {
		return convertErr(err)
	}
	// Prune directories left empty, stopping at the root.
	for dir := filepath.Dir(path); dir != f.root && strings.HasPrefix(dir, f.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return lockbox.ErrItemNotFound
	case errors.Is(err, os.ErrExist):
		return lockbox.ErrDuplicateItem
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
	default:
		return err
	}
}

func getParam(boxConfig map[string]interface{}, name string) string {
	if v, exists := boxConfig[name]; exists {
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
