// Package auth gates the operator/client mode switch. The check is a shared
// secret, not a security boundary; the Authorizer interface exists so it can
// be swapped for real auth without touching the cart or scan code.
package auth

import (
	"crypto/subtle"
	"errors"
	"log"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"gamezone/m/internal/storage"
)

const modeKey = "gamezone_mode"

// Kiosk modes.
const (
	ModeClient   = "client"
	ModeOperator = "operator"
)

// ErrBadSecret reports a failed authorization attempt.
var ErrBadSecret = errors.New("auth: invalid secret")

// Authorizer decides whether a presented secret unlocks operator mode.
type Authorizer interface {
	Authorize(secret string) bool
}

// PlainSecret compares against a fixed shared constant.
type PlainSecret string

// Authorize reports whether the presented secret matches.
func (p PlainSecret) Authorize(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(p), []byte(secret)) == 1
}

// BcryptSecret compares against a bcrypt hash of the shared secret.
type BcryptSecret string

// Authorize reports whether the presented secret matches the hash.
func (b BcryptSecret) Authorize(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(b), []byte(secret)) == nil
}

// Gate holds the current mode and persists it across restarts.
type Gate struct {
	authorizer Authorizer
	kv         storage.Store

	mu   sync.Mutex
	mode string
}

// NewGate restores the persisted mode, defaulting to client-facing.
func NewGate(authorizer Authorizer, kv storage.Store) *Gate {
	mode := ModeClient
	raw, ok, err := kv.Get(modeKey)
	if err != nil {
		log.Printf("auth: unable to read mode: %v", err)
	}
	if ok && string(raw) == ModeOperator {
		mode = ModeOperator
	}
	return &Gate{authorizer: authorizer, kv: kv, mode: mode}
}

// Mode returns the current mode.
func (g *Gate) Mode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Operator reports whether operator mode is active.
func (g *Gate) Operator() bool { return g.Mode() == ModeOperator }

// Switch changes the mode. Entering operator mode requires the secret;
// dropping back to client mode does not.
func (g *Gate) Switch(mode, secret string) error {
	if mode != ModeClient && mode != ModeOperator {
		return errors.New("auth: unknown mode")
	}
	if mode == ModeOperator && !g.authorizer.Authorize(secret) {
		return ErrBadSecret
	}
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
	if err := g.kv.Set(modeKey, []byte(mode)); err != nil {
		log.Printf("auth: unable to persist mode: %v", err)
	}
	return nil
}
