// Package keyring stores lockbox items in the operating system credential
// store through zalando/go-keyring: the macOS keychain, the Secret Service on
// Linux (D-Bus) and the Windows credential manager.
//
// go-keyring stores strings, so data is base64 encoded. The keyring "user"
// encodes the access group and account, which these stores lack.
package keyring

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/libopenstorage/lockbox"
)

const (
	Name = "keyring"
	// DefaultUser is the keyring user for items with neither account nor
	// access group. It cannot be produced by user for any other query.
	DefaultUser = "%none"
)

type keyringBackend struct{}

func New(
	config map[string]interface{},
) (lockbox.Backend, error) {
	return &keyringBackend{}, nil
}

func (k *keyringBackend) String() string {
	return Name
}

// user maps the account and access group of q onto a keyring user name.
// Accounts are used verbatim unless they contain "/" or "%"; anything else
// is path escaped so distinct queries never share a user.
func user(q lockbox.Query) string {
	switch {
	case q.AccessGroup == "" && q.Account == "":
		return DefaultUser
	case q.AccessGroup == "":
		if strings.ContainsAny(q.Account, "/%") {
			return url.PathEscape(q.Account)
		}
		return q.Account
	default:
		return url.PathEscape(q.AccessGroup) + "/" + url.PathEscape(q.Account)
	}
}

func (k *keyringBackend) get(q lockbox.Query) (string, error) {
	value, err := gokeyring.Get(q.Service, user(q))
	if errors.Is(err, gokeyring.ErrNotFound) {
		return "", lockbox.ErrItemNotFound
	} else if err != nil {
		return "", err
	}
	return value, nil
}

func (k *keyringBackend) Lookup(_ context.Context, q lockbox.Query) ([]byte, error) {
	value, err := k.get(q)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("keyring item %s is not lockbox data: %v", q.Service, err)
	}
	return data, nil
}

func (k *keyringBackend) Insert(_ context.Context, q lockbox.Query, data []byte) error {
	if _, err := k.get(q); err == nil {
		return lockbox.ErrDuplicateItem
	} else if !errors.Is(err, lockbox.ErrItemNotFound) {
		return err
	}
	return k.set(q, data)
}

func (k *keyringBackend) Update(_ context.Context, q lockbox.Query, data []byte) error {
	if _, err := k.get(q); err != nil {
		return err
	}
	return k.set(q, data)
}

func (k *keyringBackend) set(q lockbox.Query, data []byte) error {
	err := gokeyring.Set(q.Service, user(q), base64.StdEncoding.EncodeToString(data))
	if errors.Is(err, gokeyring.ErrSetDataTooBig) {
		return fmt.Errorf("keyring item %s: %w", q.Service, err)
	}
	return err
}

func (k *keyringBackend) Delete(_ context.Context, q lockbox.Query) error {
	err := gokeyring.Delete(q.Service, user(q))
	if errors.Is(err, gokeyring.ErrNotFound) {
		return lockbox.ErrItemNotFound
	}
	return err
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
