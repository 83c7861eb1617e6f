// Package storage provides the shared key-value medium the kiosk persists
// into. Every logical device writes under its own keys; cross-device ledger
// reconciliation works by listing keys with a shared prefix.
package storage

// Store is the persistence contract. Implementations must tolerate concurrent
// use; readers must treat missing keys as absent, not as errors.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	// Set writes the value, replacing any previous one.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns all keys starting with prefix, in unspecified order.
	Keys(prefix string) ([]string, error)
}
