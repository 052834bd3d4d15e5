//go:build !darwin

package keychain

import (
	"github.com/libopenstorage/lockbox"
)

// New fails on platforms without a keychain. The backend stays registered so
// configuration naming it reports lockbox.ErrNotSupported instead of an
// unknown backend.
func New(
	config map[string]interface{},
) (lockbox.Backend, error) {
	return nil, lockbox.ErrNotSupported
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
