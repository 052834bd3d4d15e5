// Package keychain stores lockbox items in the macOS and iOS keychain as
// generic passwords.
//
// Items are identified by:
//   - Service: the namespaced key
//   - Account: the lockbox account, when set
//   - Access group: the lockbox access group, when set
//
// Accessibility and synchronization are set from the query on every write.
package keychain

const (
	Name = "keychain"
	// KeychainLabelKey optionally sets the label shown in Keychain Access.app
	// for items written through this backend.
	KeychainLabelKey = "KEYCHAIN_LABEL"
)
