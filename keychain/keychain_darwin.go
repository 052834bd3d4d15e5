//go:build darwin

package keychain

import (
	"context"
	"fmt"
	"os"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/libopenstorage/lockbox"
)

// The keychain primitives. Tests replace them to run without a real keychain.
var (
	queryItem  = gokeychain.QueryItem
	addItem    = gokeychain.AddItem
	updateItem = gokeychain.UpdateItem
	deleteItem = gokeychain.DeleteItem
)

type keychainBackend struct {
	label string
}

func New(
	config map[string]interface{},
) (lockbox.Backend, error) {
	label := os.Getenv(KeychainLabelKey)
	if v, ok := config[KeychainLabelKey]; ok {
		if s, ok := v.(string); ok {
			label = s
		}
	}
	return &keychainBackend{label: label}, nil
}

func (k *keychainBackend) String() string {
	return Name
}

// item returns the search attributes identifying q.
func (k *keychainBackend) item(q lockbox.Query) gokeychain.Item {
	item := gokeychain.NewItem()
	item.SetSecClass(gokeychain.SecClassGenericPassword)
	item.SetService(q.Service)
	if q.Account != "" {
		item.SetAccount(q.Account)
	}
	if q.AccessGroup != "" {
		item.SetAccessGroup(q.AccessGroup)
	}
	item.SetSynchronizable(synchronizable(q.Synchronizable))
	return item
}

func (k *keychainBackend) Lookup(_ context.Context, q lockbox.Query) ([]byte, error) {
	item := k.item(q)
	item.SetMatchLimit(gokeychain.MatchLimitOne)
	item.SetReturnData(true)

	results, err := queryItem(item)
	if err != nil {
		return nil, convertErr(err)
	}
	if len(results) == 0 {
		return nil, lockbox.ErrItemNotFound
	}
	if results[0].Data == nil {
		return []byte{}, nil
	}
	return results[0].Data, nil
}

func (k *keychainBackend) Insert(_ context.Context, q lockbox.Query, data []byte) error {
	item := k.item(q)
	if k.label != "" {
		item.SetLabel(k.label)
	}
	item.SetAccessible(accessible(q.Accessibility))
	item.SetData(data)
	return convertErr(addItem(item))
}

func (k *keychainBackend) Update(_ context.Context, q lockbox.Query, data []byte) error {
	update := gokeychain.NewItem()
	update.SetAccessible(accessible(q.Accessibility))
	update.SetData(data)
	return convertErr(updateItem(k.item(q), update))
}

func (k *keychainBackend) Delete(_ context.Context, q lockbox.Query) error {
	return convertErr(deleteItem(k.item(q)))
}

func accessible(a lockbox.Accessibility) gokeychain.Accessible {
	switch a {
	case lockbox.AccessibleWhenUnlocked:
		return gokeychain.AccessibleWhenUnlocked
	case lockbox.AccessibleAlways:
		return gokeychain.AccessibleAlways
	case lockbox.AccessibleWhenPasscodeSetThisDeviceOnly:
		return gokeychain.AccessibleWhenPasscodeSetThisDeviceOnly
	case lockbox.AccessibleWhenUnlockedThisDeviceOnly:
		return gokeychain.AccessibleWhenUnlockedThisDeviceOnly
	case lockbox.AccessibleAfterFirstUnlockThisDeviceOnly:
		return gokeychain.AccessibleAfterFirstUnlockThisDeviceOnly
	case lockbox.AccessibleAlwaysThisDeviceOnly:
		return gokeychain.AccessibleAccessibleAlwaysThisDeviceOnly
	default:
		return gokeychain.AccessibleAfterFirstUnlock
	}
}

func synchronizable(sync bool) gokeychain.Synchronizable {
	if sync {
		return gokeychain.SynchronizableYes
	}
	return gokeychain.SynchronizableNo
}

// convertErr maps keychain status codes onto the lockbox sentinels.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	kerr, ok := err.(gokeychain.Error)
	if !ok {
		return err
	}
	switch kerr {
	case gokeychain.ErrorItemNotFound:
		return lockbox.ErrItemNotFound
	case gokeychain.ErrorDuplicateItem:
		return lockbox.ErrDuplicateItem
	case gokeychain.ErrorInteractionNotAllowed, gokeychain.ErrorNotAvailable:
		return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, kerr)
	default:
		return fmt.Errorf("keychain error %d: %v", int(kerr), kerr)
	}
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
