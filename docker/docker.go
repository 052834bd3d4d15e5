package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libopenstorage/lockbox"
)

const (
	Name             = "docker"
	DockerSecretPath = "/run/secrets/"
	// DockerSecretPathKey overrides DockerSecretPath.
	DockerSecretPathKey = "DOCKER_SECRETS_PATH"
)

// dockerBox reads the secrets docker mounts into a container. The store is
// read only: a secret's file name is the item's service.
type dockerBox struct {
	dir string
}

func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	dir := DockerSecretPath
	if v, ok := boxConfig[DockerSecretPathKey].(string); ok && v != "" {
		dir = v
	} else if v := os.Getenv(DockerSecretPathKey); v != "" {
		dir = v
	}
	return &dockerBox{dir: dir}, nil
}

func (d *dockerBox) String() string {
	return Name
}

func (d *dockerBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	// Docker secrets carry no account or access group.
	if q.Account != "" || q.AccessGroup != "" {
		return nil, lockbox.ErrItemNotFound
	}
	if q.Service == "" || strings.ContainsRune(q.Service, filepath.Separator) || q.Service == "." || q.Service == ".." {
		return nil, lockbox.ErrItemNotFound
	}
	data, err := os.ReadFile(filepath.Join(d.dir, q.Service))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, lockbox.ErrItemNotFound
	case errors.Is(err, os.ErrPermission):
		return nil, fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
	case err != nil:
		return nil, err
	}
	return data, nil
}

func (d *dockerBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	return lockbox.ErrNotSupported
}

func (d *dockerBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	return lockbox.ErrNotSupported
}

func (d *dockerBox) Delete(ctx context.Context, q lockbox.Query) error {
	return lockbox.ErrNotSupported
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
