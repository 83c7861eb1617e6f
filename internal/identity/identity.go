// Package identity provides the per-device identifier used to key this
// device's ledger in the shared medium.
package identity

import (
	"log"
	"strings"

	"github.com/google/uuid"

	"gamezone/m/internal/storage"
)

const storageKey = "gamezone_device_id"

// Provider yields a stable device identifier.
type Provider interface {
	DeviceID() string
}

// StoredProvider generates an id once and caches it in the shared medium so
// the device keeps its identity across restarts.
type StoredProvider struct {
	id string
}

// NewStored loads the cached device id or generates and persists a new one.
func NewStored(kv storage.Store) *StoredProvider {
	raw, ok, err := kv.Get(storageKey)
	if err != nil {
		log.Printf("identity: unable to read device id: %v", err)
	}
	if ok && len(raw) > 0 {
		return &StoredProvider{id: string(raw)}
	}

	id := "DEV_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	if err := kv.Set(storageKey, []byte(id)); err != nil {
		log.Printf("identity: unable to persist device id: %v", err)
	}
	return &StoredProvider{id: id}
}

// DeviceID returns the cached identifier.
func (p *StoredProvider) DeviceID() string { return p.id }

// Fixed is a Provider with a constant id, for tests and simulated devices.
type Fixed string

// DeviceID returns the fixed identifier.
func (f Fixed) DeviceID() string { return string(f) }
